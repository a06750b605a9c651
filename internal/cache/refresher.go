package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/kuco/internal/datasource"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Default synchronizer cadence
const (
	DefaultFastInterval  = 10 * time.Second
	DefaultSlowInterval  = 20 * time.Second
	DefaultPodFetchDelay = 100 * time.Millisecond
	DefaultLogTailLines  = 200
)

// RefresherOptions configures the staged synchronizer
type RefresherOptions struct {
	Table         string        // Logical table written to, DefaultTable when empty
	FastInterval  time.Duration // Stage 1 period
	SlowInterval  time.Duration // Stage 2 period
	PodFetchDelay time.Duration // Minimum gap between Stage 2 container fetches, <0 disables
	LogTailLines  int64         // Lines kept by RefreshLogs
}

func (o *RefresherOptions) normalize() {
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.FastInterval <= 0 {
		o.FastInterval = DefaultFastInterval
	}
	if o.SlowInterval <= 0 {
		o.SlowInterval = DefaultSlowInterval
	}
	if o.PodFetchDelay == 0 {
		o.PodFetchDelay = DefaultPodFetchDelay
	}
	if o.LogTailLines <= 0 {
		o.LogTailLines = DefaultLogTailLines
	}
}

// Refresher polls the cluster in two stages and writes the results into the store.
// Stage 1 lists namespaces and their pods; Stage 2 walks one namespace per tick
// and fetches container names of pods not cached yet.
type Refresher struct {
	source  datasource.ClusterSource
	store   Store
	opts    RefresherOptions
	limiter *rate.Limiter
	logger  *zap.Logger

	cancel context.CancelFunc
	group  *errgroup.Group

	// stage1 keeps all_namespaces ahead of the pods_<ns> entries of the same pass
	stage1 sync.Mutex

	mu         sync.RWMutex
	isRunning  bool
	lastError  error
	lastUpdate time.Time
	namespaces []string
	nextIndex  int
}

// NewRefresher creates a new staged refresher
func NewRefresher(source datasource.ClusterSource, store Store, opts RefresherOptions, logger *zap.Logger) *Refresher {
	opts.normalize()

	limit := rate.Inf
	if opts.PodFetchDelay > 0 {
		limit = rate.Every(opts.PodFetchDelay)
	}

	return &Refresher{
		source:  source,
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Table returns the table the refresher writes to
func (r *Refresher) Table() string {
	return r.opts.Table
}

// Start runs both stages in the background until ctx is cancelled or Stop is called
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("refresher already running")
	}

	r.logger.Info("Starting cache refresher",
		zap.Duration("fast_interval", r.opts.FastInterval),
		zap.Duration("slow_interval", r.opts.SlowInterval),
		zap.Duration("pod_fetch_delay", r.opts.PodFetchDelay),
		zap.String("table", r.opts.Table),
	)

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		r.loop(ctx, "stage1", r.opts.FastInterval, func(ctx context.Context) {
			_ = r.SyncNamespaces(ctx)
		})
		return nil
	})
	group.Go(func() error {
		r.loop(ctx, "stage2", r.opts.SlowInterval, func(ctx context.Context) {
			_, _ = r.SyncNextNamespace(ctx)
		})
		return nil
	})

	r.cancel = cancel
	r.group = group
	r.isRunning = true
	return nil
}

// Stop cancels both stages and waits for them to exit
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("refresher not running")
	}
	cancel, group := r.cancel, r.group
	r.mu.Unlock()

	r.logger.Info("Stopping cache refresher")

	cancel()
	err := group.Wait()

	r.mu.Lock()
	r.isRunning = false
	r.cancel = nil
	r.group = nil
	r.mu.Unlock()

	r.logger.Info("Cache refresher stopped")
	return err
}

// loop runs pass once immediately, then on every tick
func (r *Refresher) loop(ctx context.Context, stage string, interval time.Duration, pass func(context.Context)) {
	pass(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Refresh loop exiting", zap.String("stage", stage))
			return

		case <-ticker.C:
			pass(ctx)
		}
	}
}

// SyncNamespaces runs one Stage 1 pass. It fails only when the namespace
// list cannot be fetched or stored; per-namespace pod failures are skipped.
func (r *Refresher) SyncNamespaces(ctx context.Context) error {
	r.stage1.Lock()
	defer r.stage1.Unlock()

	startTime := time.Now()
	r.logger.Debug("Stage 1: syncing namespaces")

	namespaces, err := r.source.ListNamespaces(ctx)
	if err != nil {
		r.recordError(err)
		r.logger.Error("Stage 1: failed to list namespaces", zap.Error(err))
		return err
	}

	if err := SetJSON(ctx, r.store, r.opts.Table, NamespacesKey, namespaces); err != nil {
		r.recordError(err)
		r.logger.Error("Stage 1: failed to store namespaces", zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.namespaces = append([]string(nil), namespaces...)
	r.mu.Unlock()

	skipped := 0
	for _, ns := range namespaces {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pods, err := r.source.ListPods(ctx, ns)
		if err != nil {
			skipped++
			r.logger.Warn("Stage 1: failed to list pods, skipping namespace",
				zap.String("namespace", ns),
				zap.Error(err),
			)
			continue
		}

		if err := SetJSON(ctx, r.store, r.opts.Table, PodsKey(ns), pods); err != nil {
			skipped++
			r.logger.Error("Stage 1: failed to store pods",
				zap.String("namespace", ns),
				zap.Error(err),
			)
		}
	}

	now := time.Now()
	if err := SetJSON(ctx, r.store, r.opts.Table, LastRefreshedKey, now.Unix()); err != nil {
		r.recordError(err)
		r.logger.Error("Stage 1: failed to store refresh time", zap.Error(err))
		return nil
	}

	r.mu.Lock()
	r.lastError = nil
	r.lastUpdate = now
	r.mu.Unlock()

	r.logger.Info("Stage 1: namespaces synced",
		zap.Int("namespaces", len(namespaces)),
		zap.Int("skipped", skipped),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return nil
}

// SyncNextNamespace runs one Stage 2 tick on the next namespace in round-robin
// order. It returns the namespace processed, "" when no namespace is known yet.
func (r *Refresher) SyncNextNamespace(ctx context.Context) (string, error) {
	r.mu.Lock()
	if len(r.namespaces) == 0 {
		r.mu.Unlock()
		r.logger.Debug("Stage 2: no namespaces yet")
		return "", nil
	}
	idx := r.nextIndex % len(r.namespaces)
	ns := r.namespaces[idx]
	r.nextIndex = (idx + 1) % len(r.namespaces)
	r.mu.Unlock()

	_, err := r.SyncContainers(ctx, ns)
	return ns, err
}

// SyncContainers fetches container names for every pod of namespace whose
// entry is not cached yet. It returns the number of pods fetched.
func (r *Refresher) SyncContainers(ctx context.Context, namespace string) (int, error) {
	pods, found, err := GetJSON[[]string](ctx, r.store, r.opts.Table, PodsKey(namespace))
	if err != nil {
		r.logger.Error("Stage 2: failed to read pods",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		return 0, err
	}
	if !found {
		return 0, nil
	}

	fetched := 0
	for _, pod := range pods {
		key := ContainersKey(namespace, pod)

		_, cached, err := r.store.Get(ctx, r.opts.Table, key)
		if err != nil {
			r.logger.Warn("Stage 2: cache lookup failed, fetching anyway",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		if cached {
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return fetched, err
		}

		containers, err := r.source.GetPodContainers(ctx, namespace, pod)
		if err != nil {
			r.logger.Warn("Stage 2: failed to get containers, skipping pod",
				zap.String("namespace", namespace),
				zap.String("pod", pod),
				zap.Error(err),
			)
			continue
		}

		if err := SetJSON(ctx, r.store, r.opts.Table, key, containers); err != nil {
			r.logger.Error("Stage 2: failed to store containers",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		fetched++
	}

	r.logger.Debug("Stage 2: namespace synced",
		zap.String("namespace", namespace),
		zap.Int("pods", len(pods)),
		zap.Int("fetched", fetched),
	)
	return fetched, nil
}

// RefreshNow forces an immediate Stage 1 pass
func (r *Refresher) RefreshNow(ctx context.Context) error {
	r.logger.Info("Forcing immediate refresh")
	return r.SyncNamespaces(ctx)
}

// RefreshLogs fetches the log tail of a container into its logs_ entry
func (r *Refresher) RefreshLogs(ctx context.Context, namespace, pod, container string) error {
	lines, err := r.source.GetPodLogs(ctx, namespace, pod, container, r.opts.LogTailLines)
	if err != nil {
		r.logger.Warn("Failed to fetch logs",
			zap.String("namespace", namespace),
			zap.String("pod", pod),
			zap.String("container", container),
			zap.Error(err),
		)
		return err
	}

	if err := SetJSON(ctx, r.store, r.opts.Table, LogsKey(namespace, pod, container), lines); err != nil {
		r.logger.Error("Failed to store logs", zap.Error(err))
		return err
	}
	return nil
}

func (r *Refresher) recordError(err error) {
	r.mu.Lock()
	r.lastError = err
	r.mu.Unlock()
}

// Status returns the current refresher status
func (r *Refresher) Status() RefresherStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RefresherStatus{
		IsRunning:     r.isRunning,
		LastUpdate:    r.lastUpdate,
		LastError:     r.lastError,
		FastInterval:  r.opts.FastInterval,
		SlowInterval:  r.opts.SlowInterval,
		Namespaces:    len(r.namespaces),
		NextNamespace: r.nextIndex,
	}
}

// RefresherStatus represents the current state of the refresher
type RefresherStatus struct {
	IsRunning     bool
	LastUpdate    time.Time // Last successful Stage 1 pass
	LastError     error
	FastInterval  time.Duration
	SlowInterval  time.Duration
	Namespaces    int // Namespaces known to Stage 2
	NextNamespace int // Stage 2 round-robin cursor
}
