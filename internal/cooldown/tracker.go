// Package cooldown tracks when each user last claimed the daily reward.
package cooldown

import (
	"sort"
	"sync"
	"time"

	"fishbot-economy-api/internal/model"
)

// DefaultPeriod is the wait between two daily claims.
const DefaultPeriod = 12 * time.Hour

// Tracker maps user ids to their last claim time.
type Tracker struct {
	mu     sync.RWMutex
	period time.Duration
	last   map[string]time.Time
}

// NewTracker creates a tracker. A non-positive period falls back to DefaultPeriod.
func NewTracker(period time.Duration) *Tracker {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Tracker{
		period: period,
		last:   make(map[string]time.Time),
	}
}

// Period returns the configured cooldown.
func (t *Tracker) Period() time.Duration {
	return t.period
}

// TimeRemaining returns how long userID has to wait at now. Zero means the
// reward can be claimed. A claim stamped in the future keeps the user cooling
// until last+period.
func (t *Tracker) TimeRemaining(userID string, now time.Time) time.Duration {
	t.mu.RLock()
	last, ok := t.last[userID]
	t.mu.RUnlock()
	if !ok {
		return 0
	}

	remaining := last.Add(t.period).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return remaining
}

// RecordClaim stamps now as the last claim of userID.
func (t *Tracker) RecordClaim(userID string, now time.Time) {
	t.mu.Lock()
	t.last[userID] = now
	t.mu.Unlock()
}

// Last returns the last claim time of userID, if any.
func (t *Tracker) Last(userID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.last[userID]
	return ts, ok
}

// Snapshot returns every record ordered by user id.
func (t *Tracker) Snapshot() []model.CooldownRecord {
	t.mu.RLock()
	out := make([]model.CooldownRecord, 0, len(t.last))
	for id, ts := range t.last {
		out = append(out, model.CooldownRecord{UserID: id, LastClaimedAt: ts})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Restore replaces all records. Later duplicates win.
func (t *Tracker) Restore(records []model.CooldownRecord) {
	next := make(map[string]time.Time, len(records))
	for _, r := range records {
		if r.UserID == "" {
			continue
		}
		next[r.UserID] = r.LastClaimedAt
	}

	t.mu.Lock()
	t.last = next
	t.mu.Unlock()
}

// Len returns the number of users that have claimed at least once.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.last)
}
