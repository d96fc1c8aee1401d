// Package eventlog journals worker lifecycle events to a per-repository
// SQLite database so operators can reconstruct what happened to a worker.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Event types written by the coordinator.
const (
	TypeSpawn   = "spawn"
	TypeStatus  = "status"
	TypeKill    = "kill"
	TypePrune   = "prune"
	TypeNudge   = "nudge"
	TypeMerge   = "merge"
	TypeMigrate = "migrate"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       TEXT NOT NULL,
	worker     TEXT NOT NULL DEFAULT '',
	worker_id  TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_worker ON events(worker, created_at);
`

// timeLayout is fixed width so created_at strings sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Event is one journal row.
type Event struct {
	ID        int64
	Type      string
	Worker    string
	WorkerID  string
	Payload   string // JSON object
	CreatedAt time.Time
}

// Log is an open journal.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path with WAL and a 5-second busy
// timeout, and applies the schema.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal %s: %w", path, err)
		}
	}
	return &Log{db: db, now: time.Now}, nil
}

// Close releases the database. Safe to call on a nil or closed Log.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Record appends an event. payload is marshalled to JSON; nil stores "{}".
func (l *Log) Record(ctx context.Context, typ, worker, workerID string, payload any) error {
	body := []byte("{}")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		body = b
	}
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO events (type, worker, worker_id, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		typ, worker, workerID, string(body), l.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record %s event: %w", typ, err)
	}
	return nil
}
