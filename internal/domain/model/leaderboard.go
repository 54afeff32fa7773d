package model

// LeaderboardEntry is one row of a reconstructed leaderboard. Derived per
// query and never persisted.
type LeaderboardEntry struct {
	Position    int     `json:"position"`
	DriverName  string  `json:"driver_name"`
	TeamID      int     `json:"team_id"`
	CurrentLap  int     `json:"current_lap"`
	LastLapTime float64 `json:"last_lap_time"`
	BestLapTime float64 `json:"best_lap_time"`
	Sector1Time float64 `json:"sector1_time"`
	Sector2Time float64 `json:"sector2_time"`
	Penalties   int     `json:"penalties"`
	PitStatus   int     `json:"pit_status"`
	SlotIndex   int     `json:"car_index"`
	IsPlayer    bool    `json:"is_player"`
	Classified  bool    `json:"classified"`
	GapToLeader float64 `json:"gap_to_leader"`
	GapToAhead  float64 `json:"gap_to_ahead"`
}

// Leaderboard is the point-in-time race order served for a query time.
type Leaderboard struct {
	ReplayID        string             `json:"replay_id"`
	RequestedTime   float64            `json:"requested_time"`
	CurrentTime     float64            `json:"current_time"`
	MaxTime         float64            `json:"max_time"`
	ProgressPercent float64            `json:"progress_percent"`
	Entries         []LeaderboardEntry `json:"leaderboard"`
}

// ReplaySummary identifies a recorded replay in the catalog.
type ReplaySummary struct {
	ID          string `json:"filename"`
	DisplayName string `json:"display_name"`
}

// ReplayInfo reports the time bounds and record volume of a replay.
type ReplayInfo struct {
	ID           string       `json:"filename"`
	MinTime      float64      `json:"min_time"`
	MaxTime      float64      `json:"max_time"`
	Duration     float64      `json:"duration"`
	PacketCounts map[int]int  `json:"packet_counts"`
	SessionInfo  *SessionInfo `json:"session_info"`
}

// LapSample is the player's lap progress at one tick.
type LapSample struct {
	SessionTime float64 `json:"session_time"`
	CurrentLap  int     `json:"current_lap"`
	LapTime     float64 `json:"lap_time"`
	Sector1Time float64 `json:"sector1_time"`
	Sector2Time float64 `json:"sector2_time"`
	LapDistance float64 `json:"lap_distance"`
	Position    int     `json:"position"`
}

// TelemetrySample is the player's car telemetry at one tick.
type TelemetrySample struct {
	SessionTime float64 `json:"session_time"`
	Speed       int     `json:"speed"`
	Gear        int     `json:"gear"`
	Throttle    float64 `json:"throttle"`
	Brake       float64 `json:"brake"`
	EngineRPM   int     `json:"engine_rpm"`
}

// ReplayOverview bundles the static and sampled data of one replay.
type ReplayOverview struct {
	ReplayID     string             `json:"replay_id"`
	SessionInfo  *SessionInfo       `json:"session_info"`
	Participants []Participant      `json:"participants"`
	LapData      []LapSample        `json:"lap_data"`
	Telemetry    []TelemetrySample  `json:"telemetry"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
}
