package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
	CREATE TABLE IF NOT EXISTS economy_snapshots (
		resource TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	)`,
	selectQuery: `SELECT payload FROM economy_snapshots WHERE resource = ?`,
	upsertQuery: `
		INSERT INTO economy_snapshots (resource, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
	statsQuery: `SELECT resource, LENGTH(payload), saved_at FROM economy_snapshots ORDER BY resource`,
}

// NewSQLiteSnapshotRepository opens (or creates) the SQLite database at dbPath.
func NewSQLiteSnapshotRepository(dbPath string) (*SQLSnapshotRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo, err := newSQLSnapshotRepository(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo.log.WithField("path", dbPath).Info("initialized")
	return repo, nil
}
