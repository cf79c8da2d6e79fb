package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSnapshotRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "economy.db")

	repo, err := NewSQLiteSnapshotRepository(path)
	require.NoError(t, err)

	_, err = repo.LoadSnapshot(ctx, ResourceAccounts)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, repo.SaveSnapshot(ctx, ResourceAccounts, []byte(`{"u1":{"balance":1}}`)))
	require.NoError(t, repo.SaveSnapshot(ctx, ResourceAccounts, []byte(`{"u1":{"balance":2}}`)))
	require.NoError(t, repo.SaveSnapshot(ctx, ResourceCatalog, []byte(`[]`)))

	got, err := repo.LoadSnapshot(ctx, ResourceAccounts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"u1":{"balance":2}}`, string(got))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats["backend"])
	resources := stats["resources"].(map[string]interface{})
	assert.Len(t, resources, 2)

	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteSnapshotRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.LoadSnapshot(ctx, ResourceCatalog)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func newMockRepo(t *testing.T, open func(db *sql.DB) (*SQLSnapshotRepository, error)) (*SQLSnapshotRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS economy_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo, err := open(db)
	require.NoError(t, err)
	return repo, mock
}

func TestPostgresSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t, NewPostgresSnapshotRepositoryWithDB)

	mock.ExpectQuery(`SELECT payload FROM economy_snapshots WHERE resource = \$1`).
		WithArgs(ResourceCooldowns).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	mock.ExpectExec(`INSERT INTO economy_snapshots .* ON CONFLICT \(resource\) DO UPDATE`).
		WithArgs(ResourceCooldowns, `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT payload FROM economy_snapshots WHERE resource = \$1`).
		WithArgs(ResourceCooldowns).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))

	mock.ExpectQuery(`SELECT resource, octet_length`).
		WillReturnRows(sqlmock.NewRows([]string{"resource", "size", "saved_at"}).
			AddRow(ResourceCooldowns, int64(2), int64(1_700_000_000_000)))

	mock.ExpectClose()

	_, err := repo.LoadSnapshot(ctx, ResourceCooldowns)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, repo.SaveSnapshot(ctx, ResourceCooldowns, []byte(`[]`)))

	got, err := repo.LoadSnapshot(ctx, ResourceCooldowns)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "postgres", stats["backend"])
	entry := stats["resources"].(map[string]interface{})[ResourceCooldowns].(map[string]interface{})
	assert.EqualValues(t, 2, entry["bytes"])

	require.NoError(t, repo.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t, NewMySQLSnapshotRepositoryWithDB)

	mock.ExpectExec(`INSERT INTO economy_snapshots .* ON DUPLICATE KEY UPDATE`).
		WithArgs(ResourceAccounts, `{}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT payload FROM economy_snapshots WHERE resource = \?`).
		WithArgs(ResourceAccounts).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.SaveSnapshot(ctx, ResourceAccounts, []byte(`{}`)))

	_, err := repo.LoadSnapshot(ctx, ResourceAccounts)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotNotFound)
	assert.Contains(t, err.Error(), "connection reset")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_SaveError(t *testing.T) {
	repo, mock := newMockRepo(t, NewMySQLSnapshotRepositoryWithDB)

	mock.ExpectExec(`INSERT INTO economy_snapshots`).
		WillReturnError(errors.New("disk full"))

	err := repo.SaveSnapshot(context.Background(), ResourceCatalog, []byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save catalog snapshot")
	require.NoError(t, mock.ExpectationsWereMet())
}
