package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/logging"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name        string
	createTable string
	selectQuery string
	upsertQuery string
	statsQuery  string
}

// SQLSnapshotRepository implements SnapshotRepository on top of database/sql.
// Every resource is one row of economy_snapshots.
type SQLSnapshotRepository struct {
	db      *sql.DB
	dialect dialect
	log     *logrus.Entry
}

func newSQLSnapshotRepository(db *sql.DB, d dialect) (*SQLSnapshotRepository, error) {
	if _, err := db.Exec(d.createTable); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLSnapshotRepository{
		db:      db,
		dialect: d,
		log:     logging.Component(d.name + "-repository"),
	}, nil
}

// LoadSnapshot returns the stored payload of resource.
func (r *SQLSnapshotRepository) LoadSnapshot(ctx context.Context, resource string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, r.dialect.selectQuery, resource).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load %s snapshot: %w", resource, err)
	}
	return payload, nil
}

// SaveSnapshot upserts the payload of resource.
func (r *SQLSnapshotRepository) SaveSnapshot(ctx context.Context, resource string, data []byte) error {
	savedAt := time.Now().UTC().UnixMilli()
	if _, err := r.db.ExecContext(ctx, r.dialect.upsertQuery, resource, string(data), savedAt); err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", resource, err)
	}
	r.log.WithFields(logrus.Fields{"resource": resource, "bytes": len(data)}).Debug("snapshot saved")
	return nil
}

// GetStats returns per-resource payload size and save time.
func (r *SQLSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.statsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	resources := make(map[string]interface{})
	for rows.Next() {
		var (
			name    string
			size    int64
			savedAt int64
		)
		if err := rows.Scan(&name, &size, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		resources[name] = map[string]interface{}{
			"bytes":    size,
			"saved_at": time.UnixMilli(savedAt).UTC(),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	return map[string]interface{}{
		"backend":   r.dialect.name,
		"resources": resources,
	}, nil
}

// Close closes the database connection.
func (r *SQLSnapshotRepository) Close() error {
	return r.db.Close()
}

var _ SnapshotRepository = (*SQLSnapshotRepository)(nil)
