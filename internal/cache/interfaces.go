package cache

import (
	"context"
	"time"
)

// Buffer holds snapshot payloads that have not reached durable storage yet.
// This abstraction allows swapping between the memory buffer (single
// instance) and the Redis buffer (survives a process restart).
type Buffer interface {
	// Put stores the latest payload of resource and marks it pending.
	Put(ctx context.Context, resource string, data []byte) error

	// Get returns the buffered payload of resource. Returns ErrCacheMiss if absent.
	Get(ctx context.Context, resource string) ([]byte, error)

	// Pending lists resources waiting to be flushed.
	Pending(ctx context.Context) ([]string, error)

	// Ack drops resource if its payload still equals data. It reports whether
	// the entry was removed; a newer Put keeps it pending.
	Ack(ctx context.Context, resource string, data []byte) (bool, error)

	// Count returns the number of pending resources.
	Count(ctx context.Context) (int64, error)

	// Close releases the buffer.
	Close() error
}

// BufferedSnapshot is one pending payload handed to a FlushFunc.
type BufferedSnapshot struct {
	Resource  string
	Data      []byte
	UpdatedAt time.Time
}

// FlushFunc is called to persist buffered snapshots.
type FlushFunc func(ctx context.Context, items []BufferedSnapshot) error

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
