// Package sqlitestore keeps session tokens and the enforcement policy in an embedded
// SQLite database (pure Go driver, no cgo).
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_tokens (
	user_id   TEXT PRIMARY KEY,
	token     TEXT NOT NULL,
	issued_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS enforcement_policy (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	roles      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("[sqlitestore Open] path is required")
	}

	filePath := path
	if i := strings.IndexByte(filePath, '?'); i >= 0 {
		filePath = filePath[:i]
	}
	if filePath != ":memory:" && !strings.HasPrefix(filePath, "file::memory:") {
		if dir := filepath.Dir(filePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("[sqlitestore Open] failed to create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore Open] failed to open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection turns lock contention into queueing.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore Open] failed to ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore Open] failed to apply schema: %w", err)
	}
	return db, nil
}
