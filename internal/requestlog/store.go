// Package requestlog persists an audit trail of embeddings requests to
// SQLite or Postgres. It records outcomes and attempt counts, never request
// inputs or credential values.
package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one completed embeddings request.
type Entry struct {
	TraceID      string
	Model        string
	Provider     string
	Inputs       int
	Attempts     int
	Outcome      string // "success", "bad_request", "unauthorized", "upstream_error"
	ErrorMessage string
	LatencyMS    int64
	CreatedAt    time.Time
}

// Writer persists request entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Reader returns recent request entries, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// NoopWriter ignores all writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// SQLStore persists entries to SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLite opens (and creates if needed) a SQLite-backed store at dsn.
func NewSQLite(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "embedrouter-requests.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite request log: %w", err)
	}
	s := &SQLStore{db: db, dialect: "sqlite"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres opens a Postgres-backed store.
func NewPostgres(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres request log: %w", err)
	}
	s := &SQLStore{db: db, dialect: "postgres"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s request log: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS embedding_requests (
	id INTEGER PRIMARY KEY,
	trace_id TEXT,
	model TEXT,
	provider TEXT,
	inputs INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	error_message TEXT,
	latency_ms INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);`

	if s.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS embedding_requests (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT,
	model TEXT,
	provider TEXT,
	inputs INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	error_message TEXT,
	latency_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize request log schema: %w", err)
	}
	return nil
}

// Write records one entry.
func (s *SQLStore) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO embedding_requests(trace_id, model, provider, inputs, attempts, outcome, error_message, latency_ms, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if s.dialect == "postgres" {
		query = `INSERT INTO embedding_requests(trace_id, model, provider, inputs, attempts, outcome, error_message, latency_ms, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.TraceID,
		entry.Model,
		entry.Provider,
		entry.Inputs,
		entry.Attempts,
		entry.Outcome,
		entry.ErrorMessage,
		entry.LatencyMS,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write request log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT trace_id, model, provider, inputs, attempts, outcome, error_message, latency_ms, created_at
	FROM embedding_requests ORDER BY id DESC LIMIT ?`
	if s.dialect == "postgres" {
		query = `SELECT trace_id, model, provider, inputs, attempts, outcome, error_message, latency_ms, created_at
		FROM embedding_requests ORDER BY id DESC LIMIT $1`
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("read request log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TraceID, &e.Model, &e.Provider, &e.Inputs, &e.Attempts, &e.Outcome, &e.ErrorMessage, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
