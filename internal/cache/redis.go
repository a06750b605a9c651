package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/kuco/internal/model"
	"go.uber.org/zap"
)

// DefaultRedisPrefix namespaces kuco hashes inside a shared Redis
const DefaultRedisPrefix = "kuco:"

// RedisOptions configures OpenRedis
type RedisOptions struct {
	Addr   string
	DB     int
	Prefix string
}

// RedisStore maps a logical table to the hash <prefix><table>.
// Update times live in the sibling hash <prefix><table>:updated_at.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// OpenRedis connects to Redis and verifies the connection
func OpenRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping redis %s: %v", ErrIO, opts.Addr, err)
	}

	logger.Info("Redis cache connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
	)

	return NewRedisStore(client, opts.Prefix, logger), nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) valuesKey(table string) string {
	return s.prefix + table
}

func (s *RedisStore) timesKey(table string) string {
	return s.prefix + table + ":updated_at"
}

// Set writes value and update time in one transaction
func (s *RedisStore) Set(ctx context.Context, table, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	now := time.Now().UnixNano()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.valuesKey(table), key, value)
		pipe.HSet(ctx, s.timesKey(table), key, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", ErrIO, table, key, err)
	}
	return nil
}

// Get reads (table, key)
func (s *RedisStore) Get(ctx context.Context, table, key string) ([]byte, bool, error) {
	value, err := s.client.HGet(ctx, s.valuesKey(table), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get %s/%s: %v", ErrIO, table, key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Clear drops both hashes of table
func (s *RedisStore) Clear(ctx context.Context, table string) error {
	if err := s.client.Del(ctx, s.valuesKey(table), s.timesKey(table)).Err(); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrIO, table, err)
	}
	s.logger.Info("Cache table cleared", zap.String("table", table))
	return nil
}

// Entries lists all rows of table ordered by key
func (s *RedisStore) Entries(ctx context.Context, table string) ([]model.CacheEntry, error) {
	values, err := s.client.HGetAll(ctx, s.valuesKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrIO, table, err)
	}
	times, err := s.client.HGetAll(ctx, s.timesKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrIO, table, err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]model.CacheEntry, 0, len(keys))
	for _, k := range keys {
		entry := model.CacheEntry{
			Table: table,
			Key:   k,
			Value: []byte(values[k]),
		}
		if ns, err := strconv.ParseInt(times[k], 10, 64); err == nil {
			entry.UpdatedAt = time.Unix(0, ns)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%w: close redis: %v", ErrIO, err)
	}
	return nil
}
