package economy

import (
	"time"

	"fishbot-economy-api/internal/model"
)

// DailyResult describes a daily reward attempt.
type DailyResult struct {
	UserID  string
	Claimed bool
	Reward  int64
	Balance int64
	// Remaining is zero when Claimed.
	Remaining   time.Duration
	NextClaimAt time.Time
}

// RemainingHoursMinutes splits Remaining for display. Seconds are dropped.
func (r DailyResult) RemainingHoursMinutes() (hours, minutes int) {
	return HoursMinutes(r.Remaining)
}

// HoursMinutes splits d into whole hours and the leftover whole minutes.
func HoursMinutes(d time.Duration) (hours, minutes int) {
	if d <= 0 {
		return 0, 0
	}
	return int(d / time.Hour), int((d % time.Hour) / time.Minute)
}

// BuyResult describes a completed purchase.
type BuyResult struct {
	UserID  string
	Item    model.Item
	Balance int64
}

// SellResult describes a completed sale. Item is the inventory copy removed.
type SellResult struct {
	UserID  string
	Item    model.Item
	Payout  int64
	Balance int64
}

// Stats summarises engine state.
type Stats struct {
	Accounts      int    `json:"accounts"`
	Cooldowns     int    `json:"cooldowns"`
	CatalogItems  int    `json:"catalog_items"`
	Version       uint64 `json:"snapshot_version"`
	FlushFailures uint64 `json:"flush_failures"`
	SellPolicy    string `json:"sell_price_policy"`
}
