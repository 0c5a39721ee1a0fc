// Package store keeps privacy-conscious visitor metrics and page-session
// milestones in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store errors.
var (
	ErrEmptyHash      = errors.New("store: hashed ip is required")
	ErrUnknownKind    = errors.New("store: unknown session event kind")
	ErrEmptySessionID = errors.New("store: session id is required")
)

// RetentionPeriod is how long visitor rows are kept.
const RetentionPeriod = 365 * 24 * time.Hour

// SessionEventKind names a page-session milestone.
type SessionEventKind string

const (
	SessionStarted     SessionEventKind = "started"
	PreloaderCompleted SessionEventKind = "preloader_completed"
	AgeRevealed        SessionEventKind = "age_revealed"
	SessionClosed      SessionEventKind = "closed"
)

func (k SessionEventKind) valid() bool {
	switch k {
	case SessionStarted, PreloaderCompleted, AgeRevealed, SessionClosed:
		return true
	}
	return false
}

type VisitorMetric struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type Stats struct {
	TotalVisitors       int64           `json:"total_visitors"`
	UniqueVisitors      int64           `json:"unique_visitors"`
	VisitorsToday       int64           `json:"visitors_today"`
	VisitorsThisWeek    int64           `json:"visitors_this_week"`
	SessionsStarted     int64           `json:"sessions_started"`
	PreloadersCompleted int64           `json:"preloaders_completed"`
	AgeReveals          int64           `json:"age_reveals"`
	SessionsClosed      int64           `json:"sessions_closed"`
	RecentVisitors      []VisitorMetric `json:"recent_visitors"`
}

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT,
			path TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp)`,
		`CREATE TABLE IF NOT EXISTS session_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_kind ON session_events(kind)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// RecordVisit stores one page view.
func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error {
	if hashedIP == "" {
		return ErrEmptyHash
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		hashedIP, userAgent, path, s.now())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// RecordSessionEvent stores one session milestone.
func (s *Store) RecordSessionEvent(ctx context.Context, sessionID string, kind SessionEventKind) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if !kind.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, kind, timestamp) VALUES (?, ?, ?)`,
		sessionID, string(kind), s.now())
	if err != nil {
		return fmt.Errorf("record session event: %w", err)
	}
	return nil
}

// Stats aggregates the dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	stats := &Stats{}
	counts := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{startOfDay}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{weekAgo}},
		{&stats.SessionsStarted, `SELECT COUNT(*) FROM session_events WHERE kind = ?`, []any{string(SessionStarted)}},
		{&stats.PreloadersCompleted, `SELECT COUNT(*) FROM session_events WHERE kind = ?`, []any{string(PreloaderCompleted)}},
		{&stats.AgeReveals, `SELECT COUNT(*) FROM session_events WHERE kind = ?`, []any{string(AgeRevealed)}},
		{&stats.SessionsClosed, `SELECT COUNT(*) FROM session_events WHERE kind = ?`, []any{string(SessionClosed)}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	recent, err := s.RecentVisitors(ctx, 50)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = recent
	return stats, nil
}

// RecentVisitors returns up to limit visitors, newest first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

// CleanupVisitors deletes visitor rows older than the retention period and
// returns how many were removed.
func (s *Store) CleanupVisitors(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-RetentionPeriod)
	result, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return result.RowsAffected()
}
