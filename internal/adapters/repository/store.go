// Package repository reads recorded telemetry replays. Records are
// timestamp-indexed per kind and already decoded into domain types.
package repository

import (
	"context"
	"strconv"

	"github.com/okian/f1replay/internal/domain/model"
)

// Kind identifies a record kind. Values are the packet ids stored on disk.
type Kind int

// Record kinds.
const (
	KindMotion       Kind = 0
	KindSession      Kind = 1
	KindLapData      Kind = 2
	KindEvent        Kind = 3
	KindParticipants Kind = 4
	KindCarSetups    Kind = 5
	KindCarTelemetry Kind = 6
	KindCarStatus    Kind = 7
)

var kindNames = map[Kind]string{
	KindMotion:       "motion",
	KindSession:      "session",
	KindLapData:      "lap_data",
	KindEvent:        "event",
	KindParticipants: "participants",
	KindCarSetups:    "car_setups",
	KindCarTelemetry: "car_telemetry",
	KindCarStatus:    "car_status",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "kind_" + strconv.Itoa(int(k))
}

// Readable reports whether the store decodes records of this kind.
func (k Kind) Readable() bool {
	switch k {
	case KindSession, KindLapData, KindParticipants, KindCarTelemetry:
		return true
	}
	return false
}

// Record is one decoded record. Exactly one payload field is set, matching
// Kind.
type Record struct {
	Kind         Kind
	Timestamp    float64
	Session      *model.SessionInfo
	Participants []model.Participant
	Laps         *model.LapFrame
	Telemetry    *model.TelemetryFrame
}

// Bounds is the timestamp range of one kind within a replay.
type Bounds struct {
	Min float64
	Max float64
}

// Store provides read-only access to recorded replays.
//
// Reads of a single record return ErrReplayNotFound for unknown ids and
// ErrRecordNotFound when no record matches. A record that exists but fails
// to decode is returned with Kind and Timestamp set alongside an error
// wrapping ErrMalformedRecord.
type Store interface {
	// List returns replay ids in lexical order.
	List(ctx context.Context) ([]string, error)

	// ReadFirst returns the earliest record of kind.
	ReadFirst(ctx context.Context, replayID string, kind Kind) (Record, error)

	// ReadNearestAtOrBefore returns the record of kind with the greatest
	// timestamp not after ts.
	ReadNearestAtOrBefore(ctx context.Context, replayID string, kind Kind, ts float64) (Record, error)

	// ReadBounds returns the min and max timestamp of kind.
	ReadBounds(ctx context.Context, replayID string, kind Kind) (Bounds, error)

	// CountByKind returns the number of records per kind.
	CountByKind(ctx context.Context, replayID string) (map[Kind]int, error)

	// ReadRange returns up to limit decodable records of kind, ascending.
	// Malformed records are skipped.
	ReadRange(ctx context.Context, replayID string, kind Kind, limit int) ([]Record, error)

	Close() error
}
