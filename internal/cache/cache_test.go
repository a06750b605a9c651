package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// testStoreContract exercises the behavior every backend shares
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		values := map[string][]byte{
			"all_namespaces": []byte(`["default","kube-system"]`),
			"binary":         {0x00, 0xff, 0x10},
			"empty":          {},
		}
		for key, value := range values {
			require.NoError(t, store.Set(ctx, DefaultTable, key, value))
		}
		for key, want := range values {
			got, found, err := store.Get(ctx, DefaultTable, key)
			require.NoError(t, err)
			require.True(t, found, key)
			assert.Equal(t, want, got, key)
		}
	})

	t.Run("absent key", func(t *testing.T) {
		got, found, err := store.Get(ctx, DefaultTable, "never_written")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("overwrite replaces value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, DefaultTable, "pods_default", []byte(`["a","b"]`)))
		require.NoError(t, store.Set(ctx, DefaultTable, "pods_default", []byte(`["c"]`)))

		got, found, err := store.Get(ctx, DefaultTable, "pods_default")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte(`["c"]`), got)
	})

	t.Run("nil value stored as empty", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, DefaultTable, "nil_value", nil))
		got, found, err := store.Get(ctx, DefaultTable, "nil_value")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte{}, got)
	})

	t.Run("tables are independent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "other_table", "shared", []byte("x")))
		require.NoError(t, store.Set(ctx, DefaultTable, "shared", []byte("y")))

		got, _, err := store.Get(ctx, "other_table", "shared")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), got)
	})

	t.Run("entries", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, "listed"))
		before := time.Now().Add(-time.Second)
		require.NoError(t, store.Set(ctx, "listed", "b", []byte("2")))
		require.NoError(t, store.Set(ctx, "listed", "a", []byte("1")))

		entries, err := store.Entries(ctx, "listed")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].Key)
		assert.Equal(t, "b", entries[1].Key)
		assert.Equal(t, "listed", entries[0].Table)
		assert.Equal(t, []byte("1"), entries[0].Value)
		assert.True(t, entries[0].UpdatedAt.After(before))
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "cleared", "k", []byte("v")))
		require.NoError(t, store.Clear(ctx, "cleared"))

		_, found, err := store.Get(ctx, "cleared", "k")
		require.NoError(t, err)
		assert.False(t, found)

		entries, err := store.Entries(ctx, "cleared")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("json helpers", func(t *testing.T) {
		require.NoError(t, SetJSON(ctx, store, DefaultTable, NamespacesKey, []string{"default", "kube-system"}))

		got, found, err := GetJSON[[]string](ctx, store, DefaultTable, NamespacesKey)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []string{"default", "kube-system"}, got)

		_, found, err = GetJSON[[]string](ctx, store, DefaultTable, PodsKey("missing"))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("deserialize failure is distinct", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, DefaultTable, "corrupt", []byte("not json")))

		_, found, err := GetJSON[[]string](ctx, store, DefaultTable, "corrupt")
		require.Error(t, err)
		assert.True(t, found)
		assert.ErrorIs(t, err, ErrDeserialize)
		assert.NotErrorIs(t, err, ErrIO)
	})
}

func TestSQLiteStore(t *testing.T) {
	testStoreContract(t, newSQLiteStore(t))
}

func TestSQLiteStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	store, err := OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, SetJSON(ctx, store, DefaultTable, LastRefreshedKey, int64(1700000000)))
	require.NoError(t, store.Close())

	// Data survives a reopen
	store, err = OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ts, found, err := GetJSON[int64](ctx, store, DefaultTable, LastRefreshedKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1700000000), ts)
}

func TestSQLiteStore_InvalidTable(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	for _, table := range []string{"", "1abc", "kv cache", "kv;DROP TABLE x"} {
		err := store.Set(ctx, table, "k", []byte("v"))
		assert.ErrorIs(t, err, ErrIO, table)

		_, _, err = store.Get(ctx, table, "k")
		assert.ErrorIs(t, err, ErrIO, table)
	}
}

func TestSQLiteStore_Closed(t *testing.T) {
	store, err := OpenSQLite(context.Background(), MemoryPath, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Set(context.Background(), DefaultTable, "k", []byte("v"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Options{Backend: BackendSQLite, Path: MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, Options{Backend: "etcd"}, zap.NewNop())
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "pods_default", PodsKey("default"))
	assert.Equal(t, "cont_default_web-1", ContainersKey("default", "web-1"))
	assert.Equal(t, "logs_default_web-1_nginx", LogsKey("default", "web-1", "nginx"))
}
