// Package history keeps a log of played tracks in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shaharia-lab/audicord/internal/media"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	title     TEXT NOT NULL,
	artist    TEXT NOT NULL,
	album     TEXT NOT NULL DEFAULT '',
	played_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS plays_played_at ON plays (played_at);
`

// Play is one row of the history
type Play struct {
	ID       int64           `json:"id"`
	Track    media.MediaInfo `json:"track"`
	PlayedAt time.Time       `json:"played_at"`
}

// Store is a SQLite backed play history
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a play of info at the given time. A track equal to the most
// recent row is not recorded again, so pause and resume count once.
func (s *Store) Record(ctx context.Context, info media.MediaInfo, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var last media.MediaInfo
	err = tx.QueryRowContext(ctx,
		`SELECT title, artist, album FROM plays ORDER BY played_at DESC, id DESC LIMIT 1`,
	).Scan(&last.Title, &last.Artist, &last.Album)

	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return false, fmt.Errorf("failed to read last play: %w", err)
	case last.Equal(info):
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plays (title, artist, album, played_at) VALUES (?, ?, ?, ?)`,
		info.Title, info.Artist, info.Album, at.UnixMilli(),
	); err != nil {
		return false, fmt.Errorf("failed to record play: %w", err)
	}

	return true, tx.Commit()
}

// Recent returns up to limit plays, newest first. limit is clamped to
// [1, MaxLimit]; zero or less means DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Play, error) {
	limit = ClampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, artist, album, played_at FROM plays ORDER BY played_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	plays := make([]Play, 0, limit)
	for rows.Next() {
		var p Play
		var ms int64
		if err := rows.Scan(&p.ID, &p.Track.Title, &p.Track.Artist, &p.Track.Album, &ms); err != nil {
			return nil, err
		}
		p.PlayedAt = time.UnixMilli(ms)
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// Count returns the number of recorded plays
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ClampLimit applies the default and upper bound used by Recent
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
