package display

import (
	"context"
	"time"

	"github.com/yourusername/kuco/internal/cache"
	"github.com/yourusername/kuco/internal/model"
)

// Projector reads the list for a navigation state from the store
type Projector struct {
	store cache.Store
	table string
}

// NewProjector creates a projector over table, cache.DefaultTable when empty
func NewProjector(store cache.Store, table string) *Projector {
	if table == "" {
		table = cache.DefaultTable
	}
	return &Projector{store: store, table: table}
}

// Key returns the store key listing the children of the current level
func (p *Projector) Key(state *model.NavigationState) string {
	switch state.Level {
	case model.LevelPod:
		return cache.PodsKey(state.Namespace)
	case model.LevelContainer:
		return cache.ContainersKey(state.Namespace, state.Pod)
	case model.LevelLogs:
		return cache.LogsKey(state.Namespace, state.Pod, state.Container)
	default:
		return cache.NamespacesKey
	}
}

// Project returns the unfiltered list for state. A missing entry is an empty
// list; undecodable bytes return an error wrapping cache.ErrDeserialize.
func (p *Projector) Project(ctx context.Context, state *model.NavigationState) ([]string, error) {
	items, found, err := cache.GetJSON[[]string](ctx, p.store, p.table, p.Key(state))
	if err != nil {
		return nil, err
	}
	if !found || items == nil {
		return []string{}, nil
	}
	return items, nil
}

// LastRefreshed returns the time of the last successful namespace sync
func (p *Projector) LastRefreshed(ctx context.Context) (time.Time, bool, error) {
	ts, found, err := cache.GetJSON[int64](ctx, p.store, p.table, cache.LastRefreshedKey)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	return time.Unix(ts, 0), true, nil
}
