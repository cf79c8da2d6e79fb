package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/logging"
	"fishbot-economy-api/internal/repository"
)

// Buffer configuration
const (
	DefaultFlushInterval = 30 * time.Second
	FlushTimeout         = 60 * time.Second
	ShutdownFlushTimeout = 2 * time.Minute
)

// WriteBehindRepository buffers snapshot saves and writes them to the durable
// repository from a background loop. Loads read the buffer first.
type WriteBehindRepository struct {
	inner     repository.SnapshotRepository
	buffer    Buffer
	flushFunc FlushFunc
	name      string
	log       *logrus.Entry

	flushMu     sync.Mutex
	flushTicker *time.Ticker
	stopFlush   chan struct{}
	flushDone   chan struct{}
	stopOnce    sync.Once
	closeErr    error
}

// WriteBehindConfig holds configuration for the write-behind loop.
type WriteBehindConfig struct {
	// Name labels the buffer in stats and logs.
	Name          string
	FlushInterval time.Duration
}

// NewWriteBehindRepository starts the background flush loop. flushFunc
// receives pending snapshots; when nil they are saved to inner one by one.
func NewWriteBehindRepository(inner repository.SnapshotRepository, buffer Buffer, flushFunc FlushFunc, cfg WriteBehindConfig) *WriteBehindRepository {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Name == "" {
		cfg.Name = "buffer"
	}
	if flushFunc == nil {
		flushFunc = saveEach(inner)
	}

	w := &WriteBehindRepository{
		inner:       inner,
		buffer:      buffer,
		flushFunc:   flushFunc,
		name:        cfg.Name,
		log:         logging.Component("write-behind"),
		flushTicker: time.NewTicker(cfg.FlushInterval),
		stopFlush:   make(chan struct{}),
		flushDone:   make(chan struct{}),
	}

	go w.backgroundFlush()

	w.log.WithFields(logrus.Fields{"buffer": cfg.Name, "flush": cfg.FlushInterval}).Info("started")
	return w
}

func saveEach(inner repository.SnapshotRepository) FlushFunc {
	return func(ctx context.Context, items []BufferedSnapshot) error {
		for _, it := range items {
			if err := inner.SaveSnapshot(ctx, it.Resource, it.Data); err != nil {
				return err
			}
		}
		return nil
	}
}

// LoadSnapshot prefers a pending payload over the durable one.
func (w *WriteBehindRepository) LoadSnapshot(ctx context.Context, resource string) ([]byte, error) {
	data, err := w.buffer.Get(ctx, resource)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		w.log.WithError(err).WithField("resource", resource).Warn("buffer read failed, reading store")
	}
	return w.inner.LoadSnapshot(ctx, resource)
}

// SaveSnapshot buffers data. The durable write happens on the next flush.
func (w *WriteBehindRepository) SaveSnapshot(ctx context.Context, resource string, data []byte) error {
	return w.buffer.Put(ctx, resource, data)
}

// Flush writes every pending snapshot in write order and returns how many
// were written.
func (w *WriteBehindRepository) Flush(ctx context.Context) (int, error) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	resources, err := w.buffer.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending snapshots: %w", err)
	}
	if len(resources) == 0 {
		return 0, nil
	}
	resources = repository.InWriteOrder(resources)

	items := make([]BufferedSnapshot, 0, len(resources))
	for _, res := range resources {
		data, err := w.buffer.Get(ctx, res)
		if errors.Is(err, ErrCacheMiss) {
			continue
		}
		if err != nil {
			w.log.WithError(err).WithField("resource", res).Error("error reading buffered snapshot")
			continue
		}
		items = append(items, BufferedSnapshot{Resource: res, Data: data, UpdatedAt: time.Now()})
	}
	if len(items) == 0 {
		return 0, nil
	}

	if err := w.flushFunc(ctx, items); err != nil {
		w.log.WithError(err).Error("flush error")
		return 0, err
	}

	for _, it := range items {
		if _, err := w.buffer.Ack(ctx, it.Resource, it.Data); err != nil {
			w.log.WithError(err).WithField("resource", it.Resource).Error("error clearing buffer")
		}
	}

	w.log.WithField("items", len(items)).Debug("flushed")
	return len(items), nil
}

func (w *WriteBehindRepository) backgroundFlush() {
	defer close(w.flushDone)

	for {
		select {
		case <-w.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
			if _, err := w.Flush(ctx); err != nil {
				w.log.WithError(err).Error("background flush error")
			}
			cancel()
		case <-w.stopFlush:
			w.log.Info("shutdown: flushing remaining snapshots")
			ctx, cancel := context.WithTimeout(context.Background(), ShutdownFlushTimeout)
			if _, err := w.Flush(ctx); err != nil {
				w.log.WithError(err).Error("shutdown flush error")
			}
			cancel()
			return
		}
	}
}

// GetStats merges the durable store stats with the pending count.
func (w *WriteBehindRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := w.inner.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := w.buffer.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending snapshots: %w", err)
	}
	stats["buffer"] = w.name
	stats["buffer_pending"] = pending
	return stats, nil
}

// Close stops the loop, flushes what is left and closes both layers.
func (w *WriteBehindRepository) Close() error {
	w.stopOnce.Do(func() {
		w.flushTicker.Stop()
		close(w.stopFlush)
		<-w.flushDone
		w.closeErr = errors.Join(w.buffer.Close(), w.inner.Close())
	})
	return w.closeErr
}

var _ repository.SnapshotRepository = (*WriteBehindRepository)(nil)
