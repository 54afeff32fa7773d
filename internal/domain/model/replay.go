// Package model contains domain models passed between layers.
package model

// UnusedDriverID marks a roster slot with no car in it.
const UnusedDriverID = 255

// SessionInfo describes the recorded session. One per replay.
type SessionInfo struct {
	TrackID     int     `json:"track_id"`
	SessionType int     `json:"session_type"`
	TrackLength float64 `json:"track_length"`
	Weather     int     `json:"weather"`
}

// Participant is one roster slot as broadcast by the game.
type Participant struct {
	SlotIndex   int    `json:"index"`
	DriverID    int    `json:"driver_id"`
	Name        string `json:"name"`
	TeamID      int    `json:"team_id"`
	Nationality int    `json:"nationality"`
}

// Used reports whether the slot holds a car.
func (p Participant) Used() bool {
	return p.DriverID != UnusedDriverID
}

// CarLapState is the lap progress of a single car slot at one tick.
// Times are in seconds, distances in meters. Fields a capture version does
// not carry are zero.
type CarLapState struct {
	SlotIndex      int     `json:"car_index"`
	CarPosition    int     `json:"position"`
	CurrentLapNum  int     `json:"current_lap"`
	CurrentLapTime float64 `json:"current_lap_time"`
	LastLapTime    float64 `json:"last_lap_time"`
	BestLapTime    float64 `json:"best_lap_time"`
	Sector1Time    float64 `json:"sector1_time"`
	Sector2Time    float64 `json:"sector2_time"`
	TotalDistance  float64 `json:"total_distance"`
	LapDistance    float64 `json:"lap_distance"`
	PitStatus      int     `json:"pit_status"`
	Penalties      int     `json:"penalties"`
}

// LapFrame is one tick: the lap state of every car slot at a single
// session time.
type LapFrame struct {
	SessionTime    float64       `json:"session_time"`
	PlayerCarIndex int           `json:"player_car_index"`
	Cars           []CarLapState `json:"cars"`
}

// Player returns the lap state of the player's car, if the slot exists.
func (f LapFrame) Player() (CarLapState, bool) {
	if f.PlayerCarIndex < 0 || f.PlayerCarIndex >= len(f.Cars) {
		return CarLapState{}, false
	}
	return f.Cars[f.PlayerCarIndex], true
}

// CarTelemetry is the subset of per-car telemetry the viewer displays.
type CarTelemetry struct {
	Speed     int     `json:"speed"`
	Throttle  float64 `json:"throttle"`
	Steer     float64 `json:"steer"`
	Brake     float64 `json:"brake"`
	Gear      int     `json:"gear"`
	EngineRPM int     `json:"engine_rpm"`
}

// TelemetryFrame is one car telemetry tick for all slots.
type TelemetryFrame struct {
	SessionTime    float64        `json:"session_time"`
	PlayerCarIndex int            `json:"player_car_index"`
	Cars           []CarTelemetry `json:"cars"`
}

// Player returns the telemetry of the player's car, if the slot exists.
func (f TelemetryFrame) Player() (CarTelemetry, bool) {
	if f.PlayerCarIndex < 0 || f.PlayerCarIndex >= len(f.Cars) {
		return CarTelemetry{}, false
	}
	return f.Cars[f.PlayerCarIndex], true
}
