package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	createTable: `
	CREATE TABLE IF NOT EXISTS economy_snapshots (
		resource VARCHAR(64) NOT NULL PRIMARY KEY,
		payload LONGTEXT NOT NULL,
		saved_at BIGINT NOT NULL
	)`,
	selectQuery: `SELECT payload FROM economy_snapshots WHERE resource = ?`,
	upsertQuery: `
		INSERT INTO economy_snapshots (resource, payload, saved_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload),
			saved_at = VALUES(saved_at)`,
	statsQuery: `SELECT resource, LENGTH(payload), saved_at FROM economy_snapshots ORDER BY resource`,
}

// NewMySQLSnapshotRepository connects to MySQL using a go-sql-driver DSN.
func NewMySQLSnapshotRepository(dsn string) (*SQLSnapshotRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	repo, err := NewMySQLSnapshotRepositoryWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	repo.log.Info("initialized")
	return repo, nil
}

// NewMySQLSnapshotRepositoryWithDB wraps an already opened MySQL handle.
func NewMySQLSnapshotRepositoryWithDB(db *sql.DB) (*SQLSnapshotRepository, error) {
	return newSQLSnapshotRepository(db, mysqlDialect)
}
