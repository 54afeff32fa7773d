// Package session loads the per-replay static records, the session
// descriptor and the participant roster, once and serves them from memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/pkg/logger"
	"github.com/okian/f1replay/pkg/metrics"
)

// entry is the frozen result of one load. A nil session or roster means
// the record was unavailable.
type entry struct {
	session *model.SessionInfo
	roster  []model.Participant
}

// Index caches static replay records. Concurrent first lookups of the same
// replay share a single load; the cached entry is never mutated.
type Index struct {
	store repository.Store
	log   logger.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*entry
}

// New returns an Index reading from store.
func New(store repository.Store, opts ...Option) *Index {
	x := &Index{
		store: store,
		cache: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.log == nil {
		x.log = logger.Get().Named("session")
	}
	return x
}

// Session returns the replay's session descriptor. It returns
// ErrUnavailable when the replay has none.
func (x *Index) Session(ctx context.Context, replayID string) (model.SessionInfo, error) {
	e, err := x.get(ctx, replayID)
	if err != nil {
		return model.SessionInfo{}, err
	}
	if e.session == nil {
		return model.SessionInfo{}, fmt.Errorf("session of %s: %w", replayID, ErrUnavailable)
	}
	return *e.session, nil
}

// Participants returns the used roster slots in slot order. It returns
// ErrUnavailable when the replay has no roster.
func (x *Index) Participants(ctx context.Context, replayID string) ([]model.Participant, error) {
	e, err := x.get(ctx, replayID)
	if err != nil {
		return nil, err
	}
	if e.roster == nil {
		return nil, fmt.Errorf("participants of %s: %w", replayID, ErrUnavailable)
	}
	out := make([]model.Participant, len(e.roster))
	copy(out, e.roster)
	return out, nil
}

// Warm loads a replay's static records into the cache. Missing records
// are not an error; unknown replays and storage failures are.
func (x *Index) Warm(ctx context.Context, replayID string) error {
	_, err := x.get(ctx, replayID)
	return err
}

// Forget drops the cached entry for a replay.
func (x *Index) Forget(replayID string) {
	x.mu.Lock()
	delete(x.cache, replayID)
	x.mu.Unlock()
}

// Len returns the number of cached replays.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.cache)
}

func (x *Index) get(ctx context.Context, replayID string) (*entry, error) {
	x.mu.RLock()
	e, ok := x.cache[replayID]
	x.mu.RUnlock()
	if ok {
		metrics.RecordSessionCacheHit()
		return e, nil
	}
	metrics.RecordSessionCacheMiss()

	// The load outlives any one caller; each caller stops waiting on its
	// own cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := x.group.DoChan(replayID, func() (any, error) {
		x.mu.RLock()
		e, ok := x.cache[replayID]
		x.mu.RUnlock()
		if ok {
			return e, nil
		}
		e, err := x.load(loadCtx, replayID)
		if err != nil {
			metrics.RecordSessionLoad("error")
			return nil, err
		}
		metrics.RecordSessionLoad("ok")
		x.mu.Lock()
		x.cache[replayID] = e
		x.mu.Unlock()
		return e, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load reads the first session and roster records. Missing or corrupt
// records are cached as unavailable; unknown replays and storage failures
// are returned and not cached.
func (x *Index) load(ctx context.Context, replayID string) (*entry, error) {
	e := &entry{}

	rec, err := x.store.ReadFirst(ctx, replayID, repository.KindSession)
	if err != nil && !x.unavailable(ctx, replayID, repository.KindSession, rec, err) {
		return nil, err
	}
	if err == nil {
		e.session = rec.Session
	}

	rec, err = x.store.ReadFirst(ctx, replayID, repository.KindParticipants)
	if err != nil && !x.unavailable(ctx, replayID, repository.KindParticipants, rec, err) {
		return nil, err
	}
	if err == nil {
		e.roster = usedSlots(rec.Participants)
	}

	x.log.Debug(ctx, "session index loaded",
		logger.String("replay", replayID),
		logger.Bool("has_session", e.session != nil),
		logger.Int("participants", len(e.roster)))
	return e, nil
}

func (x *Index) unavailable(ctx context.Context, replayID string, kind repository.Kind, rec repository.Record, err error) bool {
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		return true
	case errors.Is(err, repository.ErrMalformedRecord):
		x.log.Warn(ctx, "malformed record treated as unavailable",
			logger.String("replay", replayID),
			logger.String("kind", kind.String()),
			logger.Float64("timestamp", rec.Timestamp),
			logger.Error(err))
		return true
	}
	return false
}

// usedSlots drops unused slots and returns the rest ordered by slot. The
// result is never nil so an empty roster stays distinct from a missing one.
func usedSlots(in []model.Participant) []model.Participant {
	out := make([]model.Participant, 0, len(in))
	for _, p := range in {
		if p.Used() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SlotIndex < out[j].SlotIndex })
	return out
}
