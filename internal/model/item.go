package model

import "strings"

// Item is a catalog entry. Buy cost and sell payout both use Price.
type Item struct {
	Name   string `json:"name"`
	Rarity int    `json:"rarity"`
	Price  int64  `json:"price"`
}

// Key returns the case-insensitive lookup key for the item name.
func (i Item) Key() string {
	return NameKey(i.Name)
}

// NameKey folds case for matching. Surrounding spaces stay significant, so
// "Fish 1" and " Fish 1" are different names.
func NameKey(name string) string {
	return strings.ToLower(name)
}

// DefaultItems is the catalog seeded on first start.
func DefaultItems() []Item {
	return []Item{
		{Name: "Fish 1", Rarity: 1, Price: 10},
		{Name: "Fish 2", Rarity: 1, Price: 10},
	}
}
