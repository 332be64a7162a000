// Package sqlite provides SQLite-based persistent storage for kickoff.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// FileName is the database file created inside the data directory.
const FileName = "state.db"

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db   *sql.DB
	path string
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db, path: dbPath}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// One row per user. Collections are JSON so the row mirrors the
		// aggregate the engine holds in memory.
		`CREATE TABLE IF NOT EXISTS user_points (
			user_key              TEXT PRIMARY KEY,
			total_points          INTEGER NOT NULL DEFAULT 0,
			weekly_points         INTEGER NOT NULL DEFAULT 0,
			current_streak        INTEGER NOT NULL DEFAULT 0,
			unlocked_achievements TEXT NOT NULL DEFAULT '[]',
			activity_counts       TEXT NOT NULL DEFAULT '{}',
			updated_at            INTEGER NOT NULL
		)`,

		// Append-only award journal
		`CREATE TABLE IF NOT EXISTS point_events (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			user_key    TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			reason      TEXT NOT NULL,
			total_after INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_user ON point_events(user_key, seq)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
