package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yourusername/kuco/internal/model"
	"go.uber.org/zap"
)

var (
	// ErrIO wraps every failure of the storage backend
	ErrIO = errors.New("cache io failure")

	// ErrDeserialize wraps stored bytes that do not decode into the requested type
	ErrDeserialize = errors.New("cache deserialize failure")
)

// Store is a table based key/value store.
// A missing key is reported through the found flag, never as an error.
type Store interface {
	// Set replaces the value and the update time of (table, key)
	Set(ctx context.Context, table, key string, value []byte) error

	// Get returns the stored value of (table, key)
	Get(ctx context.Context, table, key string) ([]byte, bool, error)

	// Clear removes every row of table
	Clear(ctx context.Context, table string) error

	// Entries lists the rows of table ordered by key
	Entries(ctx context.Context, table string) ([]model.CacheEntry, error)

	// Close releases the backend
	Close() error
}

// SetJSON marshals v and stores it under (table, key)
func SetJSON[T any](ctx context.Context, s Store, table, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, key, err)
	}
	return s.Set(ctx, table, key, data)
}

// GetJSON loads (table, key) and unmarshals it into T.
// found is false when the key does not exist.
func GetJSON[T any](ctx context.Context, s Store, table, key string) (T, bool, error) {
	var v T

	data, found, err := s.Get(ctx, table, key)
	if err != nil || !found {
		return v, found, err
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, true, fmt.Errorf("%w: %s/%s: %v", ErrDeserialize, table, key, err)
	}
	return v, true, nil
}

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a Store backend
type Options struct {
	Backend     string // sqlite or redis
	Path        string // SQLite file path or :memory:
	RedisAddr   string
	RedisDB     int
	RedisPrefix string
}

// Open creates the Store described by opts
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return OpenSQLite(ctx, opts.Path, logger)
	case BackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:   opts.RedisAddr,
			DB:     opts.RedisDB,
			Prefix: opts.RedisPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
