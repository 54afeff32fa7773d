package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memEntry struct {
	rec       Record
	malformed bool
}

// MemoryStore keeps replays in memory, sorted by timestamp per kind. It
// backs tests and tools that build replays programmatically.
type MemoryStore struct {
	mu      sync.RWMutex
	replays map[string]map[Kind][]memEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{replays: make(map[string]map[Kind][]memEntry)}
}

// Create registers a replay with no records. Adding records creates the
// replay implicitly.
func (m *MemoryStore) Create(replayID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replay(replayID)
}

// Add appends records to a replay keeping each kind in timestamp order.
// Records with equal timestamps keep insertion order.
func (m *MemoryStore) Add(replayID string, recs ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.insert(replayID, memEntry{rec: r})
	}
}

// AddMalformed stores a record that fails to decode when read.
func (m *MemoryStore) AddMalformed(replayID string, kind Kind, ts float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(replayID, memEntry{rec: Record{Kind: kind, Timestamp: ts}, malformed: true})
}

func (m *MemoryStore) replay(replayID string) map[Kind][]memEntry {
	r, ok := m.replays[replayID]
	if !ok {
		r = make(map[Kind][]memEntry)
		m.replays[replayID] = r
	}
	return r
}

func (m *MemoryStore) insert(replayID string, e memEntry) {
	r := m.replay(replayID)
	list := r[e.rec.Kind]
	i := sort.Search(len(list), func(i int) bool { return list[i].rec.Timestamp > e.rec.Timestamp })
	next := make([]memEntry, 0, len(list)+1)
	next = append(next, list[:i]...)
	next = append(next, e)
	next = append(next, list[i:]...)
	r[e.rec.Kind] = next
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.replays))
	for id := range m.replays {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadFirst implements Store.
func (m *MemoryStore) ReadFirst(_ context.Context, replayID string, kind Kind) (Record, error) {
	list, err := m.entries(replayID, kind)
	if err != nil {
		return Record{}, err
	}
	if len(list) == 0 {
		return Record{}, fmt.Errorf("%s in %s: %w", kind, replayID, ErrRecordNotFound)
	}
	return list[0].result()
}

// ReadNearestAtOrBefore implements Store.
func (m *MemoryStore) ReadNearestAtOrBefore(_ context.Context, replayID string, kind Kind, ts float64) (Record, error) {
	list, err := m.entries(replayID, kind)
	if err != nil {
		return Record{}, err
	}
	i := sort.Search(len(list), func(i int) bool { return list[i].rec.Timestamp > ts })
	if i == 0 {
		return Record{}, fmt.Errorf("%s at or before %.3f in %s: %w", kind, ts, replayID, ErrRecordNotFound)
	}
	return list[i-1].result()
}

// ReadBounds implements Store.
func (m *MemoryStore) ReadBounds(_ context.Context, replayID string, kind Kind) (Bounds, error) {
	list, err := m.entries(replayID, kind)
	if err != nil {
		return Bounds{}, err
	}
	if len(list) == 0 {
		return Bounds{}, fmt.Errorf("bounds of %s in %s: %w", kind, replayID, ErrRecordNotFound)
	}
	return Bounds{Min: list[0].rec.Timestamp, Max: list[len(list)-1].rec.Timestamp}, nil
}

// CountByKind implements Store.
func (m *MemoryStore) CountByKind(_ context.Context, replayID string) (map[Kind]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.replays[replayID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, replayID)
	}
	counts := make(map[Kind]int, len(r))
	for k, list := range r {
		if len(list) > 0 {
			counts[k] = len(list)
		}
	}
	return counts, nil
}

// ReadRange implements Store.
func (m *MemoryStore) ReadRange(_ context.Context, replayID string, kind Kind, limit int) ([]Record, error) {
	list, err := m.entries(replayID, kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Record{}, nil
	}
	out := make([]Record, 0, min(limit, len(list)))
	for _, e := range list {
		if len(out) >= limit {
			break
		}
		if e.malformed {
			continue
		}
		out = append(out, e.rec)
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// entries returns the kind's list. Inserts replace the slice rather than
// mutating it, so callers may read it after the lock is released.
func (m *MemoryStore) entries(replayID string, kind Kind) ([]memEntry, error) {
	if !kind.Readable() {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableKind, kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.replays[replayID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, replayID)
	}
	return r[kind], nil
}

func (e memEntry) result() (Record, error) {
	if e.malformed {
		return e.rec, fmt.Errorf("%w: %s at %.3f", ErrMalformedRecord, e.rec.Kind, e.rec.Timestamp)
	}
	return e.rec, nil
}
