package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const replaySchema = `
CREATE TABLE IF NOT EXISTS packets (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   REAL    NOT NULL,
	packetId    INTEGER NOT NULL,
	sessionTime REAL    NOT NULL,
	packet      BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_packets_kind_time ON packets (packetId, sessionTime);
`

// ReplayWriter records raw packets into a replay file using the schema
// SQLiteStore reads. It is used to build fixtures and synthetic replays.
type ReplayWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
	now  func() time.Time
}

// CreateReplay creates (or appends to) the replay file at path.
func CreateReplay(ctx context.Context, path string) (*ReplayWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("create replay %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, replaySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create replay schema %s: %w", path, err)
	}
	stmt, err := db.PrepareContext(ctx,
		`INSERT INTO packets (timestamp, packetId, sessionTime, packet) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert %s: %w", path, err)
	}
	return &ReplayWriter{db: db, stmt: stmt, now: time.Now}, nil
}

// Write stores one packet of kind at sessionTime.
func (w *ReplayWriter) Write(ctx context.Context, kind Kind, sessionTime float64, packet []byte) error {
	wall := float64(w.now().UnixNano()) / 1e9
	if _, err := w.stmt.ExecContext(ctx, wall, int(kind), sessionTime, packet); err != nil {
		return fmt.Errorf("write %s at %.3f: %w", kind, sessionTime, err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *ReplayWriter) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}
