// Package service wires the record store and the domain components into
// the operations served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/f1replay/internal/adapters/mq/queue"
	"github.com/okian/f1replay/internal/adapters/mq/worker"
	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/catalog"
	"github.com/okian/f1replay/internal/domain/gaps"
	"github.com/okian/f1replay/internal/domain/leaderboard"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/domain/session"
	"github.com/okian/f1replay/internal/domain/snapshot"
	"github.com/okian/f1replay/pkg/logger"
	"github.com/okian/f1replay/pkg/metrics"
)

// Service answers replay queries. Every query is independent; the only
// shared state is the session index cache.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ownsStore bool
	core      *core

	// Configuration
	replaysDir           string
	extension            string
	averageSpeed         float64
	maxClassified        int
	lapSampleLimit       int
	telemetrySampleLimit int
	prewarmWorkers       int

	// State
	started   bool
	startedAt time.Time

	// Session prewarm
	prewarmCancel context.CancelFunc
	prewarmDone   chan struct{}
	prewarmed     atomic.Int64
	prewarmFailed atomic.Int64

	logger logger.Logger
}

// core holds the components built by Start. It is immutable once built.
type core struct {
	store                repository.Store
	sessions             *session.Index
	reconstructor        *snapshot.Reconstructor
	builder              *leaderboard.Builder
	catalog              *catalog.Catalog
	lapSampleLimit       int
	telemetrySampleLimit int
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		ownsStore:            true,
		replaysDir:           "./replays",
		extension:            ".sqlite3",
		averageSpeed:         gaps.DefaultAverageSpeed,
		maxClassified:        gaps.DefaultMaxClassifiedPosition,
		lapSampleLimit:       100,
		telemetrySampleLimit: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components. Without an injected store it opens a SQLite
// store over the replays directory.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		s.store = repository.NewSQLiteStore(s.replaysDir,
			repository.WithExtension(s.extension),
			repository.WithLogger(logger.Get().Named("repository")),
		)
		s.ownsStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("dir", s.replaysDir))
	}

	sessions := session.New(s.store)
	s.core = &core{
		store:         s.store,
		sessions:      sessions,
		reconstructor: snapshot.New(s.store),
		builder: leaderboard.New(gaps.New(
			gaps.WithAverageSpeed(s.averageSpeed),
			gaps.WithMaxClassifiedPosition(s.maxClassified),
		)),
		catalog:              catalog.New(s.store, sessions),
		lapSampleLimit:       s.lapSampleLimit,
		telemetrySampleLimit: s.telemetrySampleLimit,
	}

	if s.prewarmWorkers > 0 {
		s.startPrewarm(ctx)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "replay service started",
		logger.Float64("averageSpeed", s.averageSpeed),
		logger.Int("maxClassifiedPosition", s.maxClassified),
		logger.Int("prewarmWorkers", s.prewarmWorkers),
	)
	return nil
}

// startPrewarm loads the session index of every listed replay in the
// background. Stop cancels it.
func (s *Service) startPrewarm(ctx context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.prewarmCancel, s.prewarmDone = cancel, done
	s.prewarmed.Store(0)
	s.prewarmFailed.Store(0)

	store, sessions, workers, log := s.store, s.core.sessions, s.prewarmWorkers, s.logger
	go func() {
		defer close(done)

		ids, err := store.List(ctx)
		if err != nil {
			log.Warn(ctx, "prewarm listing failed", logger.Error(err))
			return
		}
		q := queue.NewInMemoryQueue(queue.WithCapacity(len(ids)))
		for _, id := range ids {
			q.Enqueue(ctx, queue.Job{ReplayID: id})
		}
		_ = q.Close()

		pool := worker.NewPool(min(workers, max(len(ids), 1)), q, sessions)
		pool.Start(ctx)
		if err := pool.Wait(ctx); err != nil {
			_ = pool.Shutdown(context.Background())
		}
		ok, failed := pool.Processed()
		s.prewarmed.Store(ok)
		s.prewarmFailed.Store(failed)
		log.Info(ctx, "session prewarm finished",
			logger.Int("replays", len(ids)),
			logger.Int("warmed", int(ok)),
			logger.Int("failed", int(failed)))
	}()
}

// WaitPrewarm blocks until the background prewarm has finished.
func (s *Service) WaitPrewarm(ctx context.Context) error {
	s.mu.RLock()
	done := s.prewarmDone
	s.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if s.prewarmCancel != nil {
		s.prewarmCancel()
		<-s.prewarmDone
		s.prewarmCancel, s.prewarmDone = nil, nil
	}
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store", logger.Error(err))
		}
		s.store = nil
	}
	s.core = nil
	s.started = false
	s.logger.Info(ctx, "replay service stopped")
}

// components returns the wired components, or ErrNotStarted.
func (s *Service) components() (*core, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.core, nil
}

// GetSnapshot returns the leaderboard of a replay at time t.
func (s *Service) GetSnapshot(ctx context.Context, replayID string, t float64) (model.Leaderboard, error) {
	c, err := s.components()
	if err != nil {
		return model.Leaderboard{}, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	board, err := c.leaderboardAt(ctx, replayID, t)
	if err != nil {
		return model.Leaderboard{}, err
	}
	maxTime, err := c.catalog.MaxTime(ctx, replayID)
	if err != nil {
		return model.Leaderboard{}, fmt.Errorf("snapshot %s: %w", replayID, err)
	}
	board.MaxTime = maxTime
	board.ProgressPercent = progressPercent(board.CurrentTime, maxTime)
	return board, nil
}

// GetReplayInfo returns the time bounds, record counts and session of a replay.
func (s *Service) GetReplayInfo(ctx context.Context, replayID string) (model.ReplayInfo, error) {
	c, err := s.components()
	if err != nil {
		return model.ReplayInfo{}, err
	}
	return c.catalog.Info(ctx, replayID)
}

// ListReplays returns every replay in id order.
func (s *Service) ListReplays(ctx context.Context) ([]model.ReplaySummary, error) {
	c, err := s.components()
	if err != nil {
		return nil, err
	}
	return c.catalog.List(ctx)
}

// GetReplayOverview returns the session, roster, the first player samples
// and the leaderboard at the end of the replay.
func (s *Service) GetReplayOverview(ctx context.Context, replayID string) (model.ReplayOverview, error) {
	c, err := s.components()
	if err != nil {
		return model.ReplayOverview{}, err
	}

	out := model.ReplayOverview{ReplayID: replayID}

	info, err := c.sessions.Session(ctx, replayID)
	switch {
	case err == nil:
		out.SessionInfo = &info
	case !errors.Is(err, session.ErrUnavailable):
		return model.ReplayOverview{}, fmt.Errorf("overview %s: %w", replayID, err)
	}

	out.Participants, err = c.roster(ctx, replayID)
	if err != nil {
		return model.ReplayOverview{}, fmt.Errorf("overview %s: %w", replayID, err)
	}
	if out.Participants == nil {
		out.Participants = []model.Participant{}
	}

	if out.LapData, err = c.lapSamples(ctx, replayID); err != nil {
		return model.ReplayOverview{}, fmt.Errorf("overview %s: %w", replayID, err)
	}
	if out.Telemetry, err = c.telemetrySamples(ctx, replayID); err != nil {
		return model.ReplayOverview{}, fmt.Errorf("overview %s: %w", replayID, err)
	}

	maxTime, err := c.catalog.MaxTime(ctx, replayID)
	if err != nil {
		return model.ReplayOverview{}, fmt.Errorf("overview %s: %w", replayID, err)
	}
	board, err := c.leaderboardAt(ctx, replayID, maxTime)
	if err != nil {
		return model.ReplayOverview{}, err
	}
	out.Leaderboard = board.Entries
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":               s.started,
		"averageSpeed":          s.averageSpeed,
		"maxClassifiedPosition": s.maxClassified,
	}
	if s.started {
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
		stats["cachedSessions"] = s.core.sessions.Len()
		stats["prewarmed"] = s.prewarmed.Load()
		stats["prewarmFailed"] = s.prewarmFailed.Load()
		if sq, ok := s.store.(*repository.SQLiteStore); ok {
			stats["replaysDir"] = sq.Dir()
		}
	}
	return stats
}

func (c *core) leaderboardAt(ctx context.Context, replayID string, t float64) (model.Leaderboard, error) {
	snap, err := c.reconstructor.At(ctx, replayID, t)
	if err != nil {
		return model.Leaderboard{}, fmt.Errorf("snapshot %s at %.3f: %w", replayID, t, err)
	}
	roster, err := c.roster(ctx, replayID)
	if err != nil {
		return model.Leaderboard{}, fmt.Errorf("snapshot %s: %w", replayID, err)
	}
	return model.Leaderboard{
		ReplayID:      replayID,
		RequestedTime: snap.RequestedTime,
		CurrentTime:   snap.EffectiveTime,
		Entries:       c.builder.Build(snap.Cars, roster, snap.PlayerCarIndex),
	}, nil
}

// roster returns nil when the replay has no usable roster.
func (c *core) roster(ctx context.Context, replayID string) ([]model.Participant, error) {
	roster, err := c.sessions.Participants(ctx, replayID)
	if errors.Is(err, session.ErrUnavailable) {
		return nil, nil
	}
	return roster, err
}

func (c *core) lapSamples(ctx context.Context, replayID string) ([]model.LapSample, error) {
	recs, err := c.store.ReadRange(ctx, replayID, repository.KindLapData, c.lapSampleLimit)
	if err != nil {
		return nil, err
	}
	out := make([]model.LapSample, 0, len(recs))
	for _, r := range recs {
		if r.Laps == nil {
			continue
		}
		car, ok := r.Laps.Player()
		if !ok {
			continue
		}
		out = append(out, model.LapSample{
			SessionTime: r.Timestamp,
			CurrentLap:  car.CurrentLapNum,
			LapTime:     car.CurrentLapTime,
			Sector1Time: car.Sector1Time,
			Sector2Time: car.Sector2Time,
			LapDistance: car.LapDistance,
			Position:    car.CarPosition,
		})
	}
	return out, nil
}

func (c *core) telemetrySamples(ctx context.Context, replayID string) ([]model.TelemetrySample, error) {
	recs, err := c.store.ReadRange(ctx, replayID, repository.KindCarTelemetry, c.telemetrySampleLimit)
	if err != nil {
		return nil, err
	}
	out := make([]model.TelemetrySample, 0, len(recs))
	for _, r := range recs {
		if r.Telemetry == nil {
			continue
		}
		car, ok := r.Telemetry.Player()
		if !ok {
			continue
		}
		out = append(out, model.TelemetrySample{
			SessionTime: r.Timestamp,
			Speed:       car.Speed,
			Gear:        car.Gear,
			Throttle:    car.Throttle,
			Brake:       car.Brake,
			EngineRPM:   car.EngineRPM,
		})
	}
	return out, nil
}

func progressPercent(current, maxTime float64) float64 {
	if maxTime <= 0 {
		return 0
	}
	return current / maxTime * 100
}
