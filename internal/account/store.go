// Package account owns player balances and inventories.
package account

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"fishbot-economy-api/internal/model"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrItemNotFound      = errors.New("item not found in inventory")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidUser       = errors.New("invalid user id")
)

type entry struct {
	mu   sync.Mutex
	acct model.Account
}

// Store maps user ids to accounts. Each account has its own lock, so
// mutations of different users never contend.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{accounts: make(map[string]*entry)}
}

func newAccount(userID string) model.Account {
	return model.Account{UserID: userID, Inventory: []model.Item{}}
}

// lookup returns the entry for userID, creating it when absent.
func (s *Store) lookup(userID string) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.accounts[userID]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok = s.accounts[userID]; ok {
		return e, false
	}
	e = &entry{acct: newAccount(userID)}
	s.accounts[userID] = e
	return e, true
}

// GetOrCreate returns a copy of the account, creating an empty one as a side
// effect when the user has never been seen. The bool reports creation.
func (s *Store) GetOrCreate(userID string) (model.Account, bool) {
	e, created := s.lookup(userID)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Clone(), created
}

// Get returns a copy of an existing account without creating one.
func (s *Store) Get(userID string) (model.Account, bool) {
	s.mu.RLock()
	e, ok := s.accounts[userID]
	s.mu.RUnlock()
	if !ok {
		return model.Account{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Clone(), true
}

// Update runs fn against a copy of the account and commits the copy only
// when fn returns nil. The account is created if needed.
func (s *Store) Update(userID string, fn func(a *model.Account) error) (model.Account, error) {
	e, _ := s.lookup(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.acct.Clone()
	if err := fn(&draft); err != nil {
		return e.acct.Clone(), err
	}
	e.acct = draft
	return draft.Clone(), nil
}

// Credit adds amount to the balance and returns the new balance.
func (s *Store) Credit(userID string, amount int64) (int64, error) {
	a, err := s.Update(userID, func(a *model.Account) error {
		return ApplyCredit(a, amount)
	})
	return a.Balance, err
}

// Debit subtracts amount from the balance and returns the new balance.
func (s *Store) Debit(userID string, amount int64) (int64, error) {
	a, err := s.Update(userID, func(a *model.Account) error {
		return ApplyDebit(a, amount)
	})
	return a.Balance, err
}

// AddToInventory appends a copy of item to the inventory.
func (s *Store) AddToInventory(userID string, item model.Item) error {
	_, err := s.Update(userID, func(a *model.Account) error {
		a.Inventory = append(a.Inventory, item)
		return nil
	})
	return err
}

// RemoveFromInventory removes the first entry matching name and returns it.
func (s *Store) RemoveFromInventory(userID, name string) (model.Item, error) {
	var removed model.Item
	_, err := s.Update(userID, func(a *model.Account) error {
		it, err := TakeItem(a, name)
		removed = it
		return err
	})
	return removed, err
}

// Snapshot returns a deep copy of every account keyed by user id.
func (s *Store) Snapshot() map[string]model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.Account, len(s.accounts))
	for id, e := range s.accounts {
		e.mu.Lock()
		out[id] = e.acct.Clone()
		e.mu.Unlock()
	}
	return out
}

// Restore replaces the store contents with accounts.
func (s *Store) Restore(accounts map[string]model.Account) {
	next := make(map[string]*entry, len(accounts))
	for id, a := range accounts {
		a.UserID = id
		if a.Inventory == nil {
			a.Inventory = []model.Item{}
		}
		next[id] = &entry{acct: a.Clone()}
	}

	s.mu.Lock()
	s.accounts = next
	s.mu.Unlock()
}

// Len returns the number of known accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// ApplyCredit adds amount to a.Balance.
func ApplyCredit(a *model.Account, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: credit of %d", ErrInvalidAmount, amount)
	}
	if a.Balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: credit of %d overflows balance", ErrInvalidAmount, amount)
	}
	a.Balance += amount
	return nil
}

// ApplyDebit subtracts amount from a.Balance. The balance never goes negative.
func ApplyDebit(a *model.Account, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit of %d", ErrInvalidAmount, amount)
	}
	if a.Balance < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, a.Balance, amount)
	}
	a.Balance -= amount
	return nil
}

// TakeItem removes the first inventory entry whose name matches
// case-insensitively.
func TakeItem(a *model.Account, name string) (model.Item, error) {
	key := model.NameKey(name)
	for i, it := range a.Inventory {
		if it.Key() != key {
			continue
		}
		a.Inventory = append(a.Inventory[:i:i], a.Inventory[i+1:]...)
		return it, nil
	}
	return model.Item{}, fmt.Errorf("%w: %q", ErrItemNotFound, name)
}
