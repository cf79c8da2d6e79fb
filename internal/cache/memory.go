package cache

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryBuffer is an in-process Buffer. Pending writes are lost on a crash.
type MemoryBuffer struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryBuffer creates an empty buffer.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{entries: make(map[string][]byte)}
}

// Put stores a copy of data.
func (b *MemoryBuffer) Put(ctx context.Context, resource string, data []byte) error {
	valueCopy := make([]byte, len(data))
	copy(valueCopy, data)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[resource] = valueCopy
	return nil
}

// Get returns a copy of the buffered payload.
func (b *MemoryBuffer) Get(ctx context.Context, resource string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.entries[resource]
	if !ok {
		return nil, ErrCacheMiss
	}
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Pending lists buffered resources in name order.
func (b *MemoryBuffer) Pending(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.entries))
	for res := range b.entries {
		out = append(out, res)
	}
	sort.Strings(out)
	return out, nil
}

// Ack removes resource when its payload is still data.
func (b *MemoryBuffer) Ack(ctx context.Context, resource string, data []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.entries[resource]
	if !ok || !bytes.Equal(current, data) {
		return false, nil
	}
	delete(b.entries, resource)
	return true, nil
}

// Count returns the number of pending resources.
func (b *MemoryBuffer) Count(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.entries)), nil
}

// Close is a no-op.
func (b *MemoryBuffer) Close() error {
	return nil
}

var _ Buffer = (*MemoryBuffer)(nil)
