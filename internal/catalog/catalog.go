// Package catalog holds the purchasable item definitions.
//
// The catalog is read-only for players. Only an administrative reload
// replaces its contents, and it does so as a single swap.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"fishbot-economy-api/internal/model"
)

var (
	// ErrItemNotFound is returned when no item matches the requested name.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidItem is returned when a catalog entry fails validation.
	ErrInvalidItem = errors.New("invalid catalog item")
)

// Catalog is a concurrency-safe, case-insensitive item index.
type Catalog struct {
	mu     sync.RWMutex
	items  []model.Item
	byName map[string]model.Item
}

// New builds a catalog from items, preserving their order.
func New(items []model.Item) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(items); err != nil {
		return nil, err
	}
	return c, nil
}

// FindByName returns the item whose name matches case-insensitively.
func (c *Catalog) FindByName(name string) (model.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.byName[model.NameKey(name)]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	return item, nil
}

// All returns a copy of every item in load order.
func (c *Catalog) All() []model.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Replace validates items and swaps them in. On error the catalog is unchanged.
func (c *Catalog) Replace(items []model.Item) error {
	byName := make(map[string]model.Item, len(items))
	ordered := make([]model.Item, 0, len(items))

	for i, it := range items {
		key := it.Key()
		switch {
		case strings.TrimSpace(key) == "":
			return fmt.Errorf("%w: entry %d has an empty name", ErrInvalidItem, i)
		case it.Rarity <= 0:
			return fmt.Errorf("%w: %q rarity must be positive", ErrInvalidItem, it.Name)
		case it.Price < 0:
			return fmt.Errorf("%w: %q price must be non-negative", ErrInvalidItem, it.Name)
		}
		if _, dup := byName[key]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidItem, it.Name)
		}
		byName[key] = it
		ordered = append(ordered, it)
	}

	c.mu.Lock()
	c.items = ordered
	c.byName = byName
	c.mu.Unlock()
	return nil
}
