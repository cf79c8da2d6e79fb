package model

import "time"

// Account represents a player's balance and inventory.
type Account struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	Inventory []Item `json:"inventory"`
}

// Clone returns a deep copy so callers never share the inventory slice.
func (a Account) Clone() Account {
	inv := make([]Item, len(a.Inventory))
	copy(inv, a.Inventory)
	a.Inventory = inv
	return a
}

// InventoryValue sums the recorded prices of all inventory entries.
func (a Account) InventoryValue() int64 {
	var total int64
	for _, it := range a.Inventory {
		total += it.Price
	}
	return total
}

// CooldownRecord stores the last daily reward claim of a user.
type CooldownRecord struct {
	UserID        string    `json:"user_id"`
	LastClaimedAt time.Time `json:"last_claimed_at"`
}
