/*
Package sqlite provides the append-only session journal.

PURPOSE:
  Records what the engine decided, after the fact: every observed state
  transition (with its cache version and reason) and every requirement
  completion. The journal is write-mostly history for audit and the daily
  report; the engine never reads it back to restore state, so a restart
  always recomputes from configuration and the clock.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist in this package. Rows are only ever
  inserted and queried.

KEY TABLES:
  transitions: one row per observed snapshot change (version, state, reason)
  completions: one row per completed requirement

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of a single *sql.DB.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so journal reads for the
  report never block the writer.

USAGE:
  journal, err := sqlite.New("./focusgate.db")
  if err != nil {
      log.Fatal(err)
  }
  defer journal.Close()

SEE ALSO:
  - report: Daily summary computed from these rows
  - api/handlers.go: Records rows after successful operations
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/focusgate/session-engine/engine"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// TransitionRecord is one observed snapshot change.
type TransitionRecord struct {
	ID         string
	Version    uint64
	State      engine.State
	ReasonKind engine.ReasonKind
	ReasonID   uint64
	At         engine.Instant
	RecordedAt time.Time
}

// CompletionRecord is one completed requirement.
type CompletionRecord struct {
	ID            string
	RequirementID uint64
	Name          string
	At            engine.Instant
}

// =============================================================================
// JOURNAL
// =============================================================================

// Journal is the SQLite-backed session history.
type Journal struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the journal database and migrates the schema.
// Use ":memory:" for tests.
func New(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id          TEXT PRIMARY KEY,
		version     INTEGER NOT NULL UNIQUE,
		state       TEXT NOT NULL,
		reason_kind TEXT NOT NULL,
		reason_id   INTEGER NOT NULL DEFAULT 0,
		at          INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);

	CREATE TABLE IF NOT EXISTS completions (
		id             TEXT PRIMARY KEY,
		requirement_id INTEGER NOT NULL,
		name           TEXT NOT NULL,
		at             INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_completions_at ON completions(at);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating journal schema: %w", err)
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

// RecordTransition appends one snapshot change. The row id is issued here.
// A version already journaled (the handler and the refresher can both
// observe the same change) is ignored, so each version has exactly one row.
func (j *Journal) RecordTransition(ctx context.Context, version uint64, info engine.CurrentInfo, at engine.Instant) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transitions (id, version, state, reason_kind, reason_id, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), version, string(info.State), string(info.Reason.Kind), info.Reason.ID, int64(at))
	if err != nil {
		return fmt.Errorf("recording transition: %w", err)
	}
	return nil
}

// RecordCompletion appends one requirement completion.
func (j *Journal) RecordCompletion(ctx context.Context, requirementID uint64, name string, at engine.Instant) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO completions (id, requirement_id, name, at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), requirementID, name, int64(at))
	if err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// TransitionsBetween returns transitions with from <= at < to, oldest first.
func (j *Journal) TransitionsBetween(ctx context.Context, from, to engine.Instant) ([]TransitionRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, version, state, reason_kind, reason_id, at, recorded_at
		 FROM transitions WHERE at >= ? AND at < ? ORDER BY at ASC, version ASC`,
		int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		var r TransitionRecord
		var state, kind string
		var at int64
		if err := rows.Scan(&r.ID, &r.Version, &state, &kind, &r.ReasonID, &at, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		r.State = engine.State(state)
		r.ReasonKind = engine.ReasonKind(kind)
		r.At = engine.Instant(at)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CompletionsBetween returns completions with from <= at < to, oldest first.
func (j *Journal) CompletionsBetween(ctx context.Context, from, to engine.Instant) ([]CompletionRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, requirement_id, name, at
		 FROM completions WHERE at >= ? AND at < ? ORDER BY at ASC`,
		int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var records []CompletionRecord
	for rows.Next() {
		var r CompletionRecord
		var at int64
		if err := rows.Scan(&r.ID, &r.RequirementID, &r.Name, &at); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		r.At = engine.Instant(at)
		records = append(records, r)
	}
	return records, rows.Err()
}
