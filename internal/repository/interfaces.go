package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
)

// Snapshot resource names.
const (
	ResourceCatalog   = "catalog"
	ResourceAccounts  = "accounts"
	ResourceCooldowns = "cooldowns"
)

// writeRank orders durable writes. Cooldowns go before accounts so a stored
// balance never includes a daily reward whose claim time was not stored.
var writeRank = map[string]int{
	ResourceCatalog:   0,
	ResourceCooldowns: 1,
	ResourceAccounts:  2,
}

// InWriteOrder returns a copy of resources sorted into write order. Unknown
// resources keep their relative order after the known ones.
func InWriteOrder(resources []string) []string {
	out := slices.Clone(resources)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(WriteRank(a), WriteRank(b))
	})
	return out
}

// WriteRank is the position of resource in write order.
func WriteRank(resource string) int {
	if r, ok := writeRank[resource]; ok {
		return r
	}
	return len(writeRank)
}

// ErrSnapshotNotFound is returned by LoadSnapshot when nothing was saved yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository defines durable snapshot access methods.
type SnapshotRepository interface {
	// LoadSnapshot returns the last saved payload of resource, or ErrSnapshotNotFound.
	LoadSnapshot(ctx context.Context, resource string) ([]byte, error)

	// SaveSnapshot replaces the payload of resource.
	SaveSnapshot(ctx context.Context, resource string, data []byte) error

	// GetStats returns statistics about the stored snapshots.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
