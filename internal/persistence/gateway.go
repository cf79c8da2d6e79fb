// Package persistence encodes the economy state into named snapshots and
// writes them through a repository.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fishbot-economy-api/internal/model"
	"fishbot-economy-api/internal/repository"
)

// Snapshot is an in-memory cut of the resources listed in Resources.
// Version orders snapshots; a save never replaces a newer one.
type Snapshot struct {
	Version   uint64
	Resources []string
	Catalog   []model.Item
	Accounts  map[string]model.Account
	Cooldowns []model.CooldownRecord
}

// Gateway loads and saves the three economy resources.
type Gateway struct {
	repo repository.SnapshotRepository

	mu    sync.Mutex
	saved map[string]uint64
}

// NewGateway wraps repo.
func NewGateway(repo repository.SnapshotRepository) *Gateway {
	return &Gateway{repo: repo, saved: make(map[string]uint64)}
}

// LoadCatalog returns the stored catalog. found is false when none was saved.
func (g *Gateway) LoadCatalog(ctx context.Context) (items []model.Item, found bool, err error) {
	found, err = g.load(ctx, repository.ResourceCatalog, &items)
	return items, found, err
}

// LoadAccounts returns the stored accounts keyed by user id.
func (g *Gateway) LoadAccounts(ctx context.Context) (accounts map[string]model.Account, found bool, err error) {
	found, err = g.load(ctx, repository.ResourceAccounts, &accounts)
	if accounts == nil {
		accounts = make(map[string]model.Account)
	}
	return accounts, found, err
}

// LoadCooldowns returns the stored claim records.
func (g *Gateway) LoadCooldowns(ctx context.Context) (records []model.CooldownRecord, found bool, err error) {
	found, err = g.load(ctx, repository.ResourceCooldowns, &records)
	return records, found, err
}

func (g *Gateway) load(ctx context.Context, resource string, v interface{}) (bool, error) {
	data, err := g.repo.LoadSnapshot(ctx, resource)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s snapshot: %w", resource, err)
	}
	return true, nil
}

// Save writes every resource of snap whose stored version is older, in
// repository write order. The first failure stops the remaining writes, so a
// later resource is never stored ahead of one it depends on.
func (g *Gateway) Save(ctx context.Context, snap Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ordered := repository.InWriteOrder(snap.Resources)
	for i, res := range ordered {
		if snap.Version != 0 && snap.Version <= g.saved[res] {
			continue
		}

		data, err := encode(res, snap)
		if err == nil {
			err = g.repo.SaveSnapshot(ctx, res, data)
		}
		if err != nil {
			if skipped := ordered[i+1:]; len(skipped) > 0 {
				return fmt.Errorf("save %s: %w (skipped %s)", res, err, strings.Join(skipped, ", "))
			}
			return fmt.Errorf("save %s: %w", res, err)
		}
		if snap.Version > g.saved[res] {
			g.saved[res] = snap.Version
		}
	}
	return nil
}

// SavedVersion returns the version last written for resource.
func (g *Gateway) SavedVersion(resource string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saved[resource]
}

func encode(resource string, snap Snapshot) ([]byte, error) {
	var v interface{}
	switch resource {
	case repository.ResourceCatalog:
		items := snap.Catalog
		if items == nil {
			items = []model.Item{}
		}
		v = items
	case repository.ResourceAccounts:
		accounts := snap.Accounts
		if accounts == nil {
			accounts = map[string]model.Account{}
		}
		v = accounts
	case repository.ResourceCooldowns:
		records := snap.Cooldowns
		if records == nil {
			records = []model.CooldownRecord{}
		}
		v = records
	default:
		return nil, fmt.Errorf("unknown snapshot resource %q", resource)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s snapshot: %w", resource, err)
	}
	return data, nil
}
