package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/kuco/internal/datasource"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListNamespaces(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockSource) ListPods(ctx context.Context, namespace string) ([]string, error) {
	args := m.Called(ctx, namespace)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockSource) GetPodContainers(ctx context.Context, namespace, pod string) ([]string, error) {
	args := m.Called(ctx, namespace, pod)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockSource) GetPodLogs(ctx context.Context, namespace, pod, container string, tailLines int64) ([]string, error) {
	args := m.Called(ctx, namespace, pod, container, tailLines)
	lines, _ := args.Get(0).([]string)
	return lines, args.Error(1)
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Close() error { return nil }

var apiErr = fmt.Errorf("%w: boom", datasource.ErrAPI)

func newTestRefresher(t *testing.T, source *mockSource) (*Refresher, Store) {
	t.Helper()
	store := newSQLiteStore(t)
	r := NewRefresher(source, store, RefresherOptions{PodFetchDelay: -1}, zap.NewNop())
	return r, store
}

// recordingStore wraps a Store, records the key of every Set and fails Set for failKeys
type recordingStore struct {
	Store

	mu       sync.Mutex
	writes   []string
	failKeys map[string]bool
}

func (s *recordingStore) Set(ctx context.Context, table, key string, value []byte) error {
	s.mu.Lock()
	s.writes = append(s.writes, key)
	fail := s.failKeys[key]
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: disk full", ErrIO)
	}
	return s.Store.Set(ctx, table, key, value)
}

func (s *recordingStore) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func newRecordingRefresher(t *testing.T, source *mockSource, failKeys ...string) (*Refresher, *recordingStore) {
	t.Helper()
	store := &recordingStore{Store: newSQLiteStore(t), failKeys: make(map[string]bool)}
	for _, k := range failKeys {
		store.failKeys[k] = true
	}
	r := NewRefresher(source, store, RefresherOptions{PodFetchDelay: -1}, zap.NewNop())
	return r, store
}

func TestSyncNamespaces(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"default", "kube-system"}, nil)
	source.On("ListPods", mock.Anything, "default").Return([]string{"web-1", "web-2"}, nil)
	source.On("ListPods", mock.Anything, "kube-system").Return([]string{}, nil)

	r, store := newTestRefresher(t, source)
	before := time.Now().Unix()

	require.NoError(t, r.SyncNamespaces(ctx))

	namespaces, found, err := GetJSON[[]string](ctx, store, DefaultTable, NamespacesKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"default", "kube-system"}, namespaces)

	pods, found, err := GetJSON[[]string](ctx, store, DefaultTable, PodsKey("default"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"web-1", "web-2"}, pods)

	pods, found, err = GetJSON[[]string](ctx, store, DefaultTable, PodsKey("kube-system"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, pods)

	ts, found, err := GetJSON[int64](ctx, store, DefaultTable, LastRefreshedKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.GreaterOrEqual(t, ts, before)

	status := r.Status()
	assert.NoError(t, status.LastError)
	assert.False(t, status.LastUpdate.IsZero())
	assert.Equal(t, 2, status.Namespaces)
}

func TestSyncNamespaces_SkipsFailedNamespace(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"broken", "default"}, nil)
	source.On("ListPods", mock.Anything, "broken").Return(nil, apiErr)
	source.On("ListPods", mock.Anything, "default").Return([]string{"web-1"}, nil)

	r, store := newTestRefresher(t, source)

	require.NoError(t, r.SyncNamespaces(ctx))

	_, found, err := store.Get(ctx, DefaultTable, PodsKey("broken"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.Get(ctx, DefaultTable, PodsKey("default"))
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = store.Get(ctx, DefaultTable, LastRefreshedKey)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSyncNamespaces_ListFailure(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return(nil, apiErr)

	r, store := newTestRefresher(t, source)

	err := r.SyncNamespaces(ctx)
	assert.ErrorIs(t, err, datasource.ErrAPI)

	_, found, err := store.Get(ctx, DefaultTable, LastRefreshedKey)
	require.NoError(t, err)
	assert.False(t, found)

	status := r.Status()
	assert.ErrorIs(t, status.LastError, datasource.ErrAPI)
	assert.True(t, status.LastUpdate.IsZero())
	source.AssertNotCalled(t, "ListPods", mock.Anything, mock.Anything)
}

func TestSyncContainers_Memoized(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"default"}, nil)
	source.On("ListPods", mock.Anything, "default").Return([]string{"web-1"}, nil)
	source.On("GetPodContainers", mock.Anything, "default", "web-1").Return([]string{"nginx", "sidecar"}, nil)

	r, store := newTestRefresher(t, source)
	require.NoError(t, r.SyncNamespaces(ctx))

	for i := 0; i < 3; i++ {
		ns, err := r.SyncNextNamespace(ctx)
		require.NoError(t, err)
		assert.Equal(t, "default", ns)
	}

	source.AssertNumberOfCalls(t, "GetPodContainers", 1)

	containers, found, err := GetJSON[[]string](ctx, store, DefaultTable, ContainersKey("default", "web-1"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"nginx", "sidecar"}, containers)
}

func TestSyncContainers_FailedPodRetriedNextTick(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"default"}, nil)
	source.On("ListPods", mock.Anything, "default").Return([]string{"web-1", "web-2"}, nil)
	source.On("GetPodContainers", mock.Anything, "default", "web-1").Return(nil, apiErr)
	source.On("GetPodContainers", mock.Anything, "default", "web-2").Return([]string{"app"}, nil)

	r, _ := newTestRefresher(t, source)
	require.NoError(t, r.SyncNamespaces(ctx))

	fetched, err := r.SyncContainers(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)

	fetched, err = r.SyncContainers(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 0, fetched)

	source.AssertNumberOfCalls(t, "GetPodContainers", 3)
}

func TestSyncContainers_CorruptPods(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}

	r, store := newTestRefresher(t, source)
	require.NoError(t, store.Set(ctx, DefaultTable, PodsKey("default"), []byte("{")))

	_, err := r.SyncContainers(ctx, "default")
	assert.ErrorIs(t, err, ErrDeserialize)
	source.AssertNotCalled(t, "GetPodContainers", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncNextNamespace_RoundRobin(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"a", "b", "c"}, nil)
	source.On("ListPods", mock.Anything, mock.Anything).Return([]string{}, nil)

	r, _ := newTestRefresher(t, source)

	ns, err := r.SyncNextNamespace(ctx)
	require.NoError(t, err)
	assert.Empty(t, ns, "no namespaces before the first Stage 1 pass")

	require.NoError(t, r.SyncNamespaces(ctx))

	var visited []string
	for i := 0; i < 5; i++ {
		ns, err := r.SyncNextNamespace(ctx)
		require.NoError(t, err)
		visited = append(visited, ns)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, visited)
}

func TestSyncNextNamespace_ListShrinks(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"a", "b", "c"}, nil).Once()
	source.On("ListNamespaces", mock.Anything).Return([]string{"x"}, nil)
	source.On("ListPods", mock.Anything, mock.Anything).Return([]string{}, nil)

	r, _ := newTestRefresher(t, source)
	require.NoError(t, r.SyncNamespaces(ctx))

	_, _ = r.SyncNextNamespace(ctx)
	_, _ = r.SyncNextNamespace(ctx)

	require.NoError(t, r.SyncNamespaces(ctx))

	ns, err := r.SyncNextNamespace(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", ns)
}

func TestRefreshLogs(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("GetPodLogs", mock.Anything, "default", "web-1", "nginx", int64(DefaultLogTailLines)).
		Return([]string{"line 1", "line 2"}, nil)

	r, store := newTestRefresher(t, source)
	require.NoError(t, r.RefreshLogs(ctx, "default", "web-1", "nginx"))

	lines, found, err := GetJSON[[]string](ctx, store, DefaultTable, LogsKey("default", "web-1", "nginx"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"line 1", "line 2"}, lines)
}

func TestRefreshLogs_Error(t *testing.T) {
	source := &mockSource{}
	source.On("GetPodLogs", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apiErr)

	r, _ := newTestRefresher(t, source)
	err := r.RefreshLogs(context.Background(), "default", "web-1", "nginx")
	assert.True(t, errors.Is(err, datasource.ErrAPI))
}

func TestRefresherStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"default"}, nil)
	source.On("ListPods", mock.Anything, "default").Return([]string{"web-1"}, nil)
	source.On("GetPodContainers", mock.Anything, "default", "web-1").Return([]string{"nginx"}, nil)

	store, err := OpenSQLite(context.Background(), MemoryPath, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	r := NewRefresher(source, store, RefresherOptions{
		FastInterval:  20 * time.Millisecond,
		SlowInterval:  20 * time.Millisecond,
		PodFetchDelay: time.Millisecond,
	}, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start must fail")
	assert.True(t, r.Status().IsRunning)

	require.Eventually(t, func() bool {
		_, found, err := store.Get(context.Background(), DefaultTable, ContainersKey("default", "web-1"))
		return err == nil && found
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Stop())
	assert.False(t, r.Status().IsRunning)
	assert.Error(t, r.Stop(), "stop on a stopped refresher must fail")
}

func TestSyncNamespaces_WriteOrder(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"default", "kube-system"}, nil)
	source.On("ListPods", mock.Anything, mock.Anything).Return([]string{"p"}, nil)

	r, store := newRecordingRefresher(t, source)
	require.NoError(t, r.SyncNamespaces(ctx))

	assert.Equal(t, []string{
		NamespacesKey,
		PodsKey("default"),
		PodsKey("kube-system"),
		LastRefreshedKey,
	}, store.written())
}

func TestSyncNamespaces_ContinuesAfterWriteFailure(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("ListNamespaces", mock.Anything).Return([]string{"default", "kube-system", "monitoring"}, nil)
	source.On("ListPods", mock.Anything, mock.Anything).Return([]string{"p"}, nil)

	r, store := newRecordingRefresher(t, source, PodsKey("kube-system"))
	require.NoError(t, r.SyncNamespaces(ctx))

	for _, key := range []string{PodsKey("default"), PodsKey("monitoring"), LastRefreshedKey} {
		_, found, err := store.Get(ctx, DefaultTable, key)
		require.NoError(t, err)
		assert.True(t, found, key)
	}
	_, found, err := store.Get(ctx, DefaultTable, PodsKey("kube-system"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, r.Status().LastUpdate.IsZero())
}

func TestSyncContainers_ContinuesAfterWriteFailure(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{}
	source.On("GetPodContainers", mock.Anything, "default", mock.Anything).Return([]string{"app"}, nil)

	r, store := newRecordingRefresher(t, source, ContainersKey("default", "web-1"))
	require.NoError(t, SetJSON(ctx, store, DefaultTable, PodsKey("default"), []string{"web-1", "web-2", "web-3"}))

	fetched, err := r.SyncContainers(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 2, fetched)

	for _, pod := range []string{"web-2", "web-3"} {
		containers, found, err := GetJSON[[]string](ctx, store, DefaultTable, ContainersKey("default", pod))
		require.NoError(t, err)
		require.True(t, found, pod)
		assert.Equal(t, []string{"app"}, containers)
	}
	_, found, err := store.Get(ctx, DefaultTable, ContainersKey("default", "web-1"))
	require.NoError(t, err)
	assert.False(t, found)
}
