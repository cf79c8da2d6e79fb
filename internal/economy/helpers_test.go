package economy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fishbot-economy-api/internal/model"
	"fishbot-economy-api/internal/persistence"
	"fishbot-economy-api/internal/repository"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

var errDiskUnavailable = errors.New("disk unavailable")

// flakyRepo fails saves while failing is set, fails only cooldowns saves
// while failCooldowns is set, and records every accounts payload.
type flakyRepo struct {
	*repository.MemorySnapshotRepository
	failing       atomic.Bool
	failCooldowns atomic.Bool

	mu       sync.Mutex
	accounts [][]byte
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{MemorySnapshotRepository: repository.NewMemorySnapshotRepository()}
}

func (r *flakyRepo) SaveSnapshot(ctx context.Context, resource string, data []byte) error {
	if r.failing.Load() {
		return errDiskUnavailable
	}
	if r.failCooldowns.Load() && resource == repository.ResourceCooldowns {
		return errDiskUnavailable
	}
	if resource == repository.ResourceAccounts {
		cp := append([]byte(nil), data...)
		r.mu.Lock()
		r.accounts = append(r.accounts, cp)
		r.mu.Unlock()
	}
	return r.MemorySnapshotRepository.SaveSnapshot(ctx, resource, data)
}

func (r *flakyRepo) savedAccounts(t *testing.T) []map[string]model.Account {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]map[string]model.Account, 0, len(r.accounts))
	for _, raw := range r.accounts {
		var m map[string]model.Account
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func newTestEngine(t *testing.T, repo repository.SnapshotRepository, opts Options) *Engine {
	t.Helper()

	e, err := New(opts, persistence.NewGateway(repo))
	require.NoError(t, err)
	require.NoError(t, e.Init(context.Background()))
	return e
}

// fund gives userID balance through daily claims spaced past the cooldown.
func fund(t *testing.T, e *Engine, userID string, claims int) {
	t.Helper()

	for i := 0; i < claims; i++ {
		_, err := e.ClaimDaily(context.Background(), userID, t0.Add(time.Duration(i)*e.cooldowns.Period()))
		require.NoError(t, err)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	failed   []string
}

func (o *recordingObserver) ObserveOperation(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, op+":"+outcome)
	o.mu.Unlock()
}

func (o *recordingObserver) FlushFailed(resource string) {
	o.mu.Lock()
	o.failed = append(o.failed, resource)
	o.mu.Unlock()
}
