package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/telemetry"
	"github.com/okian/f1replay/pkg/logger"
	"github.com/okian/f1replay/pkg/metrics"

	_ "modernc.org/sqlite"
)

// Schema of a recorded replay file. The recorder writes one row per UDP
// packet; timestamp is wall-clock, sessionTime is the game clock used as
// the record timestamp.
const (
	queryFirst = `SELECT sessionTime, packet FROM packets
		WHERE packetId = ? ORDER BY sessionTime ASC, rowid ASC LIMIT 1`
	queryNearestAtOrBefore = `SELECT sessionTime, packet FROM packets
		WHERE packetId = ? AND sessionTime <= ? ORDER BY sessionTime DESC, rowid DESC LIMIT 1`
	queryBounds = `SELECT COUNT(*), COALESCE(MIN(sessionTime), 0), COALESCE(MAX(sessionTime), 0)
		FROM packets WHERE packetId = ?`
	queryCounts = `SELECT packetId, COUNT(*) FROM packets GROUP BY packetId`
	queryRange  = `SELECT sessionTime, packet FROM packets
		WHERE packetId = ? ORDER BY sessionTime ASC, rowid ASC LIMIT ?`

	// Opened read-only; the recorder owns the files.
	dsnParams = "?_pragma=query_only(1)&_pragma=busy_timeout(5000)"
)

// SQLiteStore serves replays recorded as one SQLite file per replay in a
// directory.
type SQLiteStore struct {
	dir       string
	extension string
	log       logger.Logger

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore returns a store over dir. Files are opened on first use.
func NewSQLiteStore(dir string, opts ...Option) *SQLiteStore {
	o := buildOptions(opts)
	return &SQLiteStore{
		dir:       dir,
		extension: o.extension,
		log:       o.log,
		dbs:       make(map[string]*sql.DB),
	}
}

// Dir returns the replays directory.
func (s *SQLiteStore) Dir() string { return s.dir }

// List returns the ids of replay files in the directory. A missing
// directory lists as empty.
func (s *SQLiteStore) List(_ context.Context) ([]string, error) {
	defer observe("list", time.Now())

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list replays in %s: %w", s.dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, s.extension) {
			continue
		}
		if id := strings.TrimSuffix(name, s.extension); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadFirst implements Store.
func (s *SQLiteStore) ReadFirst(ctx context.Context, replayID string, kind Kind) (Record, error) {
	defer observe("first", time.Now())
	return s.readOne(ctx, replayID, kind, queryFirst, int(kind))
}

// ReadNearestAtOrBefore implements Store.
func (s *SQLiteStore) ReadNearestAtOrBefore(ctx context.Context, replayID string, kind Kind, ts float64) (Record, error) {
	defer observe("nearest", time.Now())
	return s.readOne(ctx, replayID, kind, queryNearestAtOrBefore, int(kind), ts)
}

// ReadBounds implements Store.
func (s *SQLiteStore) ReadBounds(ctx context.Context, replayID string, kind Kind) (Bounds, error) {
	defer observe("bounds", time.Now())

	db, err := s.open(replayID)
	if err != nil {
		return Bounds{}, err
	}
	var (
		n int
		b Bounds
	)
	if err := db.QueryRowContext(ctx, queryBounds, int(kind)).Scan(&n, &b.Min, &b.Max); err != nil {
		return Bounds{}, fmt.Errorf("bounds of %s in %s: %w", kind, replayID, err)
	}
	if n == 0 {
		return Bounds{}, fmt.Errorf("bounds of %s in %s: %w", kind, replayID, ErrRecordNotFound)
	}
	return b, nil
}

// CountByKind implements Store.
func (s *SQLiteStore) CountByKind(ctx context.Context, replayID string) (map[Kind]int, error) {
	defer observe("count", time.Now())

	db, err := s.open(replayID)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, queryCounts)
	if err != nil {
		return nil, fmt.Errorf("count records in %s: %w", replayID, err)
	}
	defer rows.Close()

	counts := make(map[Kind]int)
	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("count records in %s: %w", replayID, err)
		}
		counts[Kind(id)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count records in %s: %w", replayID, err)
	}
	return counts, nil
}

// ReadRange implements Store.
func (s *SQLiteStore) ReadRange(ctx context.Context, replayID string, kind Kind, limit int) ([]Record, error) {
	defer observe("range", time.Now())

	if !kind.Readable() {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableKind, kind)
	}
	if limit <= 0 {
		return []Record{}, nil
	}
	db, err := s.open(replayID)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, queryRange, int(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("range of %s in %s: %w", kind, replayID, err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			ts   float64
			blob []byte
		)
		if err := rows.Scan(&ts, &blob); err != nil {
			return nil, fmt.Errorf("range of %s in %s: %w", kind, replayID, err)
		}
		rec, err := decode(kind, ts, blob)
		if err != nil {
			s.log.Warn(ctx, "skipping malformed record",
				logger.String("replay", replayID),
				logger.String("kind", kind.String()),
				logger.Float64("timestamp", ts),
				logger.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range of %s in %s: %w", kind, replayID, err)
	}
	return out, nil
}

// Close closes every opened replay file.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
		delete(s.dbs, id)
	}
	return errors.Join(errs...)
}

func (s *SQLiteStore) readOne(ctx context.Context, replayID string, kind Kind, query string, args ...any) (Record, error) {
	if !kind.Readable() {
		return Record{}, fmt.Errorf("%w: %s", ErrUnreadableKind, kind)
	}
	db, err := s.open(replayID)
	if err != nil {
		return Record{}, err
	}
	var (
		ts   float64
		blob []byte
	)
	err = db.QueryRowContext(ctx, query, args...).Scan(&ts, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s in %s: %w", kind, replayID, ErrRecordNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read %s in %s: %w", kind, replayID, err)
	}
	rec, err := decode(kind, ts, blob)
	if err != nil {
		return Record{Kind: kind, Timestamp: ts}, err
	}
	return rec, nil
}

// open returns the cached handle for a replay. The file is checked outside
// the lock; a racing open of the same replay keeps the first handle.
func (s *SQLiteStore) open(replayID string) (*sql.DB, error) {
	if err := ValidateReplayID(replayID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	db, ok := s.dbs[replayID]
	s.mu.Unlock()
	if ok {
		return db, nil
	}

	path := filepath.Join(s.dir, replayID+s.extension)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, replayID)
	}
	if err != nil {
		return nil, fmt.Errorf("stat replay %s: %w", replayID, err)
	}
	fresh, err := sql.Open("sqlite", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open replay %s: %w", replayID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[replayID]; ok {
		_ = fresh.Close()
		return db, nil
	}
	s.dbs[replayID] = fresh
	return fresh, nil
}

// ValidateReplayID rejects ids that could escape the replays directory.
func ValidateReplayID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidReplayID, id)
	}
	return nil
}

// decode turns a stored packet into a record.
func decode(kind Kind, ts float64, blob []byte) (Record, error) {
	rec := Record{Kind: kind, Timestamp: ts}
	var err error
	switch kind {
	case KindSession:
		var s model.SessionInfo
		if s, err = telemetry.DecodeSession(blob); err == nil {
			rec.Session = &s
		}
	case KindParticipants:
		rec.Participants, err = telemetry.DecodeParticipants(blob)
	case KindLapData:
		var f model.LapFrame
		if f, err = telemetry.DecodeLapData(blob); err == nil {
			rec.Laps = &f
		}
	case KindCarTelemetry:
		var f model.TelemetryFrame
		if f, err = telemetry.DecodeCarTelemetry(blob); err == nil {
			rec.Telemetry = &f
		}
	default:
		return rec, fmt.Errorf("%w: %s", ErrUnreadableKind, kind)
	}
	if err != nil {
		metrics.RecordMalformedRecord(kind.String())
		return rec, fmt.Errorf("%w: %s at %.3f: %v", ErrMalformedRecord, kind, ts, err)
	}
	return rec, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
