// Package economy implements the balance, daily reward and shop rules on top
// of the account store, cooldown tracker and catalog.
//
// Every operation runs under a per-user lock and a shared snapshot fence. The
// fence is taken exclusively only while copying state for persistence, so a
// snapshot never sees half of an operation. Durable writes happen after all
// locks are released.
package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/account"
	"fishbot-economy-api/internal/catalog"
	"fishbot-economy-api/internal/cooldown"
	"fishbot-economy-api/internal/logging"
	"fishbot-economy-api/internal/model"
	"fishbot-economy-api/internal/persistence"
	"fishbot-economy-api/internal/repository"
)

// Default game rules.
const (
	DefaultDailyReward  int64 = 100
	DefaultFlushTimeout       = 10 * time.Second
)

// Operation names used in errors, logs and metrics.
const (
	OpJoin          = "join"
	OpBalance       = "balance"
	OpInventory     = "inventory"
	OpDaily         = "daily"
	OpBuy           = "buy"
	OpSell          = "sell"
	OpReloadCatalog = "reload_catalog"
)

// accountResources is flushed after every account change. Cooldowns ride
// along so a stored balance is never ahead of the stored claim times.
var accountResources = []string{
	repository.ResourceCooldowns,
	repository.ResourceAccounts,
}

var allResources = []string{
	repository.ResourceCatalog,
	repository.ResourceAccounts,
	repository.ResourceCooldowns,
}

// Persistence loads and stores engine snapshots.
type Persistence interface {
	LoadCatalog(ctx context.Context) ([]model.Item, bool, error)
	LoadAccounts(ctx context.Context) (map[string]model.Account, bool, error)
	LoadCooldowns(ctx context.Context) ([]model.CooldownRecord, bool, error)
	Save(ctx context.Context, snap persistence.Snapshot) error
}

// Observer receives operation outcomes. metrics.EngineObserver implements it.
type Observer interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
	FlushFailed(resource string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, time.Duration) {}
func (nopObserver) FlushFailed(string)                             {}

// Options configures an Engine. A zero Cooldown, FlushTimeout, SellPolicy or
// DefaultCatalog falls back to its default. DailyReward is used as given.
type Options struct {
	DailyReward    int64
	Cooldown       time.Duration
	SellPolicy     SellPricePolicy
	FlushTimeout   time.Duration
	DefaultCatalog []model.Item
	Observer       Observer
}

// Engine is the economy state machine.
type Engine struct {
	opts    Options
	persist Persistence
	obs     Observer
	log     *logrus.Entry

	catalog   *catalog.Catalog
	accounts  *account.Store
	cooldowns *cooldown.Tracker

	users *keyedMutex
	fence sync.RWMutex
	// version is only changed with fence held exclusively.
	version uint64

	flushFailures atomic.Uint64
}

// New creates an engine seeded with the default catalog. Call Init to load
// persisted state before serving requests.
func New(opts Options, persist Persistence) (*Engine, error) {
	if persist == nil {
		return nil, errors.New("economy: persistence is required")
	}
	if opts.DailyReward < 0 {
		return nil, fmt.Errorf("economy: daily reward must be non-negative, got %d", opts.DailyReward)
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = cooldown.DefaultPeriod
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	policy, err := ParseSellPricePolicy(string(opts.SellPolicy))
	if err != nil {
		return nil, fmt.Errorf("economy: %w", err)
	}
	opts.SellPolicy = policy
	if opts.DefaultCatalog == nil {
		opts.DefaultCatalog = model.DefaultItems()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	cat, err := catalog.New(opts.DefaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("economy: default catalog: %w", err)
	}

	return &Engine{
		opts:      opts,
		persist:   persist,
		obs:       opts.Observer,
		log:       logging.Component("economy"),
		catalog:   cat,
		accounts:  account.NewStore(),
		cooldowns: cooldown.NewTracker(opts.Cooldown),
		users:     newKeyedMutex(),
	}, nil
}

// Init loads the three resources. Each absent resource is seeded with its
// default and written immediately.
func (e *Engine) Init(ctx context.Context) error {
	var seed []string

	items, found, err := e.persist.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if found {
		if err := e.catalog.Replace(items); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	} else {
		seed = append(seed, repository.ResourceCatalog)
	}

	accounts, found, err := e.persist.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if found {
		e.accounts.Restore(accounts)
	} else {
		seed = append(seed, repository.ResourceAccounts)
	}

	records, found, err := e.persist.LoadCooldowns(ctx)
	if err != nil {
		return fmt.Errorf("load cooldowns: %w", err)
	}
	if found {
		e.cooldowns.Restore(records)
	} else {
		seed = append(seed, repository.ResourceCooldowns)
	}

	if len(seed) > 0 {
		if err := e.persist.Save(ctx, e.snapshot(seed...)); err != nil {
			return fmt.Errorf("seed %s: %w", strings.Join(seed, ", "), err)
		}
		e.log.WithField("resources", seed).Info("seeded default snapshots")
	}

	e.log.WithFields(logrus.Fields{
		"accounts":  e.accounts.Len(),
		"cooldowns": e.cooldowns.Len(),
		"catalog":   e.catalog.Len(),
	}).Info("state loaded")
	return nil
}

// Checkpoint writes all three resources.
func (e *Engine) Checkpoint(ctx context.Context) error {
	return e.persist.Save(ctx, e.snapshot(allResources...))
}

// Shutdown performs the final flush.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.Checkpoint(ctx); err != nil {
		e.log.WithError(err).Error("final flush failed")
		return fmt.Errorf("final flush: %w", err)
	}
	e.log.Info("final flush complete")
	return nil
}

// Join eagerly creates the account of a new member.
func (e *Engine) Join(ctx context.Context, userID string) (acct model.Account, created bool, err error) {
	start := time.Now()
	defer func() { e.observe(OpJoin, start, err) }()

	release, err := e.begin(OpJoin, userID)
	if err != nil {
		return model.Account{}, false, err
	}
	acct, created = e.accounts.GetOrCreate(userID)
	release()

	if created {
		e.flush(ctx, OpJoin, accountResources...)
	}
	return acct, created, nil
}

// GetBalance returns the balance of userID, creating the account if needed.
func (e *Engine) GetBalance(ctx context.Context, userID string) (balance int64, err error) {
	start := time.Now()
	defer func() { e.observe(OpBalance, start, err) }()

	release, err := e.begin(OpBalance, userID)
	if err != nil {
		return 0, err
	}
	defer release()

	acct, _ := e.accounts.GetOrCreate(userID)
	return acct.Balance, nil
}

// Inventory returns a copy of the account of userID.
func (e *Engine) Inventory(ctx context.Context, userID string) (acct model.Account, err error) {
	start := time.Now()
	defer func() { e.observe(OpInventory, start, err) }()

	release, err := e.begin(OpInventory, userID)
	if err != nil {
		return model.Account{}, err
	}
	defer release()

	acct, _ = e.accounts.GetOrCreate(userID)
	return acct, nil
}

// ClaimDaily credits the daily reward when the cooldown has elapsed at now.
// Inside the cooldown it changes nothing and returns an *Error of kind
// KindNotYetEligible together with a result carrying the remaining time.
func (e *Engine) ClaimDaily(ctx context.Context, userID string, now time.Time) (res DailyResult, err error) {
	start := time.Now()
	defer func() { e.observe(OpDaily, start, err) }()

	release, err := e.begin(OpDaily, userID)
	if err != nil {
		return DailyResult{UserID: userID}, err
	}

	res = DailyResult{UserID: userID}
	if remaining := e.cooldowns.TimeRemaining(userID, now); remaining > 0 {
		if acct, ok := e.accounts.Get(userID); ok {
			res.Balance = acct.Balance
		}
		release()

		res.Remaining = remaining
		res.NextClaimAt = now.Add(remaining)
		return res, &Error{Kind: KindNotYetEligible, Op: OpDaily, UserID: userID, Remaining: remaining}
	}

	acct, err := e.accounts.Update(userID, func(a *model.Account) error {
		return account.ApplyCredit(a, e.opts.DailyReward)
	})
	if err != nil {
		release()
		res.Balance = acct.Balance
		return res, opError(OpDaily, userID, "", err)
	}
	e.cooldowns.RecordClaim(userID, now)
	release()

	e.flush(ctx, OpDaily, accountResources...)

	res.Claimed = true
	res.Reward = e.opts.DailyReward
	res.Balance = acct.Balance
	res.NextClaimAt = now.Add(e.cooldowns.Period())
	return res, nil
}

// Buy debits the current catalog price of itemName and adds the item to the
// inventory as one update.
func (e *Engine) Buy(ctx context.Context, userID, itemName string) (res BuyResult, err error) {
	start := time.Now()
	defer func() { e.observe(OpBuy, start, err) }()

	release, err := e.begin(OpBuy, userID)
	if err != nil {
		return BuyResult{UserID: userID}, err
	}

	item, err := e.catalog.FindByName(itemName)
	if err != nil {
		release()
		return BuyResult{UserID: userID}, opError(OpBuy, userID, itemName, err)
	}

	acct, err := e.accounts.Update(userID, func(a *model.Account) error {
		if err := account.ApplyDebit(a, item.Price); err != nil {
			return err
		}
		a.Inventory = append(a.Inventory, item)
		return nil
	})
	release()
	if err != nil {
		return BuyResult{UserID: userID, Item: item, Balance: acct.Balance}, opError(OpBuy, userID, itemName, err)
	}

	e.flush(ctx, OpBuy, accountResources...)
	return BuyResult{UserID: userID, Item: item, Balance: acct.Balance}, nil
}

// Sell removes the first inventory entry matching itemName and credits the
// payout chosen by the sell price policy.
func (e *Engine) Sell(ctx context.Context, userID, itemName string) (res SellResult, err error) {
	start := time.Now()
	defer func() { e.observe(OpSell, start, err) }()

	release, err := e.begin(OpSell, userID)
	if err != nil {
		return SellResult{UserID: userID}, err
	}

	var (
		sold   model.Item
		payout int64
	)
	acct, err := e.accounts.Update(userID, func(a *model.Account) error {
		it, err := account.TakeItem(a, itemName)
		if err != nil {
			return err
		}
		p := e.opts.SellPolicy.payout(e.catalog, it)
		if err := account.ApplyCredit(a, p); err != nil {
			return err
		}
		sold, payout = it, p
		return nil
	})
	release()
	if err != nil {
		return SellResult{UserID: userID, Balance: acct.Balance}, opError(OpSell, userID, itemName, err)
	}

	e.flush(ctx, OpSell, accountResources...)
	return SellResult{UserID: userID, Item: sold, Payout: payout, Balance: acct.Balance}, nil
}

// Catalog returns the listed items in load order.
func (e *Engine) Catalog() []model.Item {
	return e.catalog.All()
}

// ReloadCatalog replaces the catalog with the stored snapshot.
func (e *Engine) ReloadCatalog(ctx context.Context) (items []model.Item, err error) {
	start := time.Now()
	defer func() { e.observe(OpReloadCatalog, start, err) }()

	items, found, err := e.persist.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload catalog: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("reload catalog: %w", repository.ErrSnapshotNotFound)
	}
	if err := e.swapCatalog(items); err != nil {
		return nil, fmt.Errorf("reload catalog: %w", err)
	}

	e.log.WithField("items", len(items)).Info("catalog reloaded")
	return e.catalog.All(), nil
}

// ReplaceCatalog installs items and persists them.
func (e *Engine) ReplaceCatalog(ctx context.Context, items []model.Item) (out []model.Item, err error) {
	start := time.Now()
	defer func() { e.observe(OpReloadCatalog, start, err) }()

	if err := e.swapCatalog(items); err != nil {
		return nil, fmt.Errorf("replace catalog: %w", err)
	}
	e.flush(ctx, OpReloadCatalog, repository.ResourceCatalog)

	e.log.WithField("items", len(items)).Info("catalog replaced")
	return e.catalog.All(), nil
}

// Stats summarises the in-memory state.
func (e *Engine) Stats() Stats {
	e.fence.RLock()
	version := e.version
	e.fence.RUnlock()

	return Stats{
		Accounts:      e.accounts.Len(),
		Cooldowns:     e.cooldowns.Len(),
		CatalogItems:  e.catalog.Len(),
		Version:       version,
		FlushFailures: e.flushFailures.Load(),
		SellPolicy:    string(e.opts.SellPolicy),
	}
}

func (e *Engine) swapCatalog(items []model.Item) error {
	e.fence.Lock()
	defer e.fence.Unlock()
	return e.catalog.Replace(items)
}

// begin validates userID and takes the fence (shared) and the user lock.
func (e *Engine) begin(op, userID string) (release func(), err error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &Error{Kind: KindInvalidUser, Op: op, UserID: userID, Err: account.ErrInvalidUser}
	}

	e.fence.RLock()
	unlock := e.users.Lock(userID)

	var once sync.Once
	return func() {
		once.Do(func() {
			unlock()
			e.fence.RUnlock()
		})
	}, nil
}

// snapshot copies the named resources under the exclusive fence.
func (e *Engine) snapshot(resources ...string) persistence.Snapshot {
	e.fence.Lock()
	defer e.fence.Unlock()

	e.version++
	snap := persistence.Snapshot{Version: e.version, Resources: resources}
	for _, res := range resources {
		switch res {
		case repository.ResourceCatalog:
			snap.Catalog = e.catalog.All()
		case repository.ResourceAccounts:
			snap.Accounts = e.accounts.Snapshot()
		case repository.ResourceCooldowns:
			snap.Cooldowns = e.cooldowns.Snapshot()
		}
	}
	return snap
}

// flush persists resources after an operation. Failures are logged and
// counted; the in-memory effect of the operation stands.
func (e *Engine) flush(ctx context.Context, op string, resources ...string) {
	snap := e.snapshot(resources...)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.FlushTimeout)
	defer cancel()

	if err := e.persist.Save(ctx, snap); err != nil {
		e.flushFailures.Add(1)
		for _, res := range resources {
			e.obs.FlushFailed(res)
		}
		e.log.WithError(err).WithFields(logrus.Fields{
			"op":        op,
			"resources": resources,
			"version":   snap.Version,
		}).Error("snapshot flush failed")
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	e.obs.ObserveOperation(op, outcome, time.Since(start))
}
