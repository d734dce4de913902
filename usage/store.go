// Package usage persists how often each palette command is used.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_usage (
	command_id  TEXT PRIMARY KEY,
	count       INTEGER NOT NULL DEFAULT 0,
	last_used   TEXT NOT NULL
);
`

// Store records command usage in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the usage database at path.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps an in-memory database alive and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record increments the usage count of a command.
func (s *Store) Record(ctx context.Context, commandID string) error {
	commandID = strings.TrimSpace(commandID)
	if commandID == "" {
		return fmt.Errorf("command id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_usage (command_id, count, last_used) VALUES (?, 1, ?)
		ON CONFLICT(command_id) DO UPDATE SET count = count + 1, last_used = excluded.last_used`,
		commandID, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record usage of %s: %w", commandID, err)
	}
	return nil
}

// Counts returns the usage count of every recorded command.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT command_id, count FROM command_usage`)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
