// Package history keeps past rank check results in SQLite.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"serprank/checker"
)

//go:embed schema.sql
var schema string

// Entry is a stored rank check.
type Entry struct {
	CheckedAt time.Time `json:"checkedAt"`
	checker.RankResult
}

// Store is a rank history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one result checked at at.
func (s *Store) Record(ctx context.Context, r checker.RankResult, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rank_checks (keyword, checked_at, success, message, rank, title, author, date, posted_on, url, section, exposed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Keyword, at.UnixMilli(), r.Success, r.Message, r.Rank,
		r.Title, r.Author, r.Date, r.PostedOn, r.URL, r.Section, r.Exposed,
	)
	if err != nil {
		return fmt.Errorf("record %q: %w", r.Keyword, err)
	}
	return nil
}

// Recent returns up to limit results for keyword, newest first.
func (s *Store) Recent(ctx context.Context, keyword string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT checked_at, keyword, success, message, rank, title, author, date, posted_on, url, section, exposed
		FROM rank_checks
		WHERE keyword = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT ?`, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&ms, &e.Keyword, &e.Success, &e.Message, &e.Rank,
			&e.Title, &e.Author, &e.Date, &e.PostedOn, &e.URL, &e.Section, &e.Exposed); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.CheckedAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
