package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload []byte
	savedAt time.Time
}

// MemorySnapshotRepository keeps snapshots in process memory. Use this for
// development and tests; nothing survives a restart.
type MemorySnapshotRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	saves   int64
}

// NewMemorySnapshotRepository creates an empty in-memory repository.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{entries: make(map[string]memoryEntry)}
}

// LoadSnapshot returns a copy of the stored payload.
func (r *MemorySnapshotRepository) LoadSnapshot(ctx context.Context, resource string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[resource]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, nil
}

// SaveSnapshot stores a copy of data.
func (r *MemorySnapshotRepository) SaveSnapshot(ctx context.Context, resource string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[resource] = memoryEntry{payload: cp, savedAt: time.Now().UTC()}
	r.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (r *MemorySnapshotRepository) Saves() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// GetStats returns per-resource payload sizes.
func (r *MemorySnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resources := make(map[string]interface{}, len(r.entries))
	for name, e := range r.entries {
		resources[name] = map[string]interface{}{
			"bytes":    int64(len(e.payload)),
			"saved_at": e.savedAt,
		}
	}
	return map[string]interface{}{
		"backend":   "memory",
		"saves":     r.saves,
		"resources": resources,
	}, nil
}

// Close is a no-op.
func (r *MemorySnapshotRepository) Close() error {
	return nil
}

var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)
