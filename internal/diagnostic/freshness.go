package diagnostic

import (
	"context"
	"time"

	"github.com/yourusername/kuco/internal/cache"
)

// FreshnessStatus describes how old the cached cluster view is
type FreshnessStatus struct {
	LastRefreshed time.Time
	Synced        bool // false when last_refreshed_at was never written
	Age           time.Duration
	Threshold     time.Duration
	Stale         bool
}

// CheckFreshness reads last_refreshed_at from table and compares its age with threshold.
// A cache that was never synced counts as stale.
func CheckFreshness(ctx context.Context, store cache.Store, table string, threshold time.Duration, now time.Time) (*FreshnessStatus, error) {
	ts, found, err := cache.GetJSON[int64](ctx, store, table, cache.LastRefreshedKey)
	if err != nil {
		return nil, err
	}

	status := &FreshnessStatus{Threshold: threshold}
	if !found {
		status.Stale = true
		return status, nil
	}

	status.Synced = true
	status.LastRefreshed = time.Unix(ts, 0)
	status.Age = now.Sub(status.LastRefreshed)
	if status.Age < 0 {
		status.Age = 0
	}
	status.Stale = status.Age > threshold
	return status, nil
}
