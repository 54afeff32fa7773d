// Package snapshot reconstructs the per-car lap state of a replay at a
// point in time from a single recorded tick.
package snapshot

import (
	"context"
	"errors"
	"math"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/pkg/logger"
	"github.com/okian/f1replay/pkg/metrics"
)

// driftLogThreshold is the gap between requested and served time, in
// seconds, above which the served tick is logged.
const driftLogThreshold = 1.0

// Snapshot is the lap state served for a requested time.
type Snapshot struct {
	RequestedTime float64
	// EffectiveTime is the timestamp of the served tick, or the requested
	// time when the replay has no lap data.
	EffectiveTime  float64
	PlayerCarIndex int
	Cars           []model.CarLapState
}

// Reconstructor reads ticks from a store. It keeps no state between calls.
type Reconstructor struct {
	store repository.Store
	log   logger.Logger
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the reconstructor logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconstructor) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns a Reconstructor over store.
func New(store repository.Store, opts ...Option) *Reconstructor {
	r := &Reconstructor{store: store}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("snapshot")
	}
	return r
}

// At returns the lap state of the latest tick at or before t. Times before
// the first tick are served the first tick; a replay without lap data
// yields no cars and t as the effective time. A corrupt tick yields no cars
// at the tick's timestamp. Only unknown replays and storage failures are
// returned as errors.
func (r *Reconstructor) At(ctx context.Context, replayID string, t float64) (Snapshot, error) {
	snap := Snapshot{RequestedTime: t, EffectiveTime: t, Cars: []model.CarLapState{}}

	rec, err := r.store.ReadNearestAtOrBefore(ctx, replayID, repository.KindLapData, t)
	if errors.Is(err, repository.ErrRecordNotFound) {
		rec, err = r.store.ReadFirst(ctx, replayID, repository.KindLapData)
	}
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrRecordNotFound):
		metrics.RecordSnapshotRequest("empty")
		return snap, nil
	case errors.Is(err, repository.ErrMalformedRecord):
		r.log.Warn(ctx, "lap tick unreadable, serving empty state",
			logger.String("replay", replayID),
			logger.Float64("requested", t),
			logger.Float64("timestamp", rec.Timestamp),
			logger.Error(err))
		metrics.RecordSnapshotRequest("malformed")
		snap.EffectiveTime = rec.Timestamp
		return snap, nil
	case errors.Is(err, repository.ErrReplayNotFound):
		metrics.RecordSnapshotRequest("not_found")
		return Snapshot{}, err
	default:
		metrics.RecordSnapshotRequest("error")
		return Snapshot{}, err
	}

	snap.EffectiveTime = rec.Timestamp
	if rec.Laps != nil {
		snap.PlayerCarIndex = rec.Laps.PlayerCarIndex
		snap.Cars = append(snap.Cars, rec.Laps.Cars...)
	}

	drift := t - snap.EffectiveTime
	metrics.RecordSnapshotRequest("ok")
	metrics.RecordSnapshotDrift(drift)
	if math.Abs(drift) > driftLogThreshold {
		r.log.Debug(ctx, "served tick far from requested time",
			logger.String("replay", replayID),
			logger.Float64("requested", t),
			logger.Float64("served", snap.EffectiveTime))
	}
	return snap, nil
}
