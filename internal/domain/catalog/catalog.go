// Package catalog enumerates recorded replays and summarizes each one.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/domain/session"
	"github.com/okian/f1replay/pkg/metrics"
)

// Catalog is a read-only view over the record store.
type Catalog struct {
	store    repository.Store
	sessions *session.Index
}

// New returns a Catalog. Session descriptors are read through sessions so
// they share its cache.
func New(store repository.Store, sessions *session.Index) *Catalog {
	return &Catalog{store: store, sessions: sessions}
}

// List returns every replay in id order.
func (c *Catalog) List(ctx context.Context) ([]model.ReplaySummary, error) {
	ids, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list replays: %w", err)
	}
	metrics.UpdateReplaysAvailable(len(ids))

	out := make([]model.ReplaySummary, len(ids))
	for i, id := range ids {
		out[i] = model.ReplaySummary{ID: id, DisplayName: id}
	}
	return out, nil
}

// Info returns the lap data time bounds, the record count per kind and the
// session descriptor when one was recorded. Bounds are zero for a replay
// without lap data.
func (c *Catalog) Info(ctx context.Context, replayID string) (model.ReplayInfo, error) {
	counts, err := c.store.CountByKind(ctx, replayID)
	if err != nil {
		return model.ReplayInfo{}, fmt.Errorf("info %s: %w", replayID, err)
	}

	info := model.ReplayInfo{ID: replayID, PacketCounts: make(map[int]int, len(counts))}
	for k, n := range counts {
		info.PacketCounts[int(k)] = n
	}

	b, err := c.store.ReadBounds(ctx, replayID, repository.KindLapData)
	switch {
	case err == nil:
		info.MinTime, info.MaxTime = b.Min, b.Max
		info.Duration = b.Max - b.Min
	case !errors.Is(err, repository.ErrRecordNotFound):
		return model.ReplayInfo{}, fmt.Errorf("info %s: %w", replayID, err)
	}

	s, err := c.sessions.Session(ctx, replayID)
	switch {
	case err == nil:
		info.SessionInfo = &s
	case !errors.Is(err, session.ErrUnavailable):
		return model.ReplayInfo{}, fmt.Errorf("info %s: %w", replayID, err)
	}
	return info, nil
}

// MaxTime returns the last lap data timestamp, or 0 without lap data.
func (c *Catalog) MaxTime(ctx context.Context, replayID string) (float64, error) {
	b, err := c.store.ReadBounds(ctx, replayID, repository.KindLapData)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return b.Max, nil
}
