package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/revivr/internal/history"
)

// Sink implements history.Sink for SQLite (modernc.org/sqlite driver,
// CGO-free). The DSN is a filesystem path; use ":memory:" for in-memory.
type Sink struct {
	db *sql.DB
}

// New opens a SQLite database at path and ensures the schema.
func New(path string) (*Sink, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	s := &Sink{db: d}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS restart_history(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TIMESTAMP NOT NULL,
			event TEXT NOT NULL,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			stopped TEXT NOT NULL,
			forced BOOLEAN NOT NULL,
			detail TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_restart_history_name ON restart_history(name);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	var detail sql.NullString
	if e.Detail != "" {
		detail = sql.NullString{String: e.Detail, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restart_history(occurred_at, event, name, pid, stopped, forced, detail)
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), string(e.Type), e.Name, e.PID, e.StoppedList(), e.Forced, detail)
	return err
}

// Recent returns the most recent events for a process name, newest first.
func (s *Sink) Recent(ctx context.Context, name string, limit int) ([]history.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, event, name, pid, stopped, forced, COALESCE(detail, '')
		FROM restart_history
		WHERE name=?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?;`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]history.Event, 0)
	for rows.Next() {
		var e history.Event
		var typ, stopped string
		if err := rows.Scan(&e.OccurredAt, &typ, &e.Name, &e.PID, &stopped, &e.Forced, &e.Detail); err != nil {
			return nil, err
		}
		e.Type = history.EventType(typ)
		e.Stopped = parseStopped(stopped)
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseStopped(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func (s *Sink) Close() error { return s.db.Close() }
