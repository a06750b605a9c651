package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/yourusername/kuco/internal/model"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a transient database dropped when the store is closed
const MemoryPath = ":memory:"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether table can be used as a logical table name
func ValidTableName(table string) bool {
	return tableNameRe.MatchString(table)
}

// SQLiteStore keeps every logical table in its own SQLite table
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	tables map[string]bool
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = MemoryPath
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create cache dir: %v", ErrIO, err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	// A single connection serializes statements and keeps :memory: alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrIO, path, err)
	}

	logger.Info("SQLite cache opened", zap.String("path", path))

	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger,
		tables: make(map[string]bool),
	}, nil
}

// ensureTable creates table on first use
func (s *SQLiteStore) ensureTable(ctx context.Context, table string) error {
	if !ValidTableName(table) {
		return fmt.Errorf("%w: invalid table name %q", ErrIO, table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[table] {
		return nil
	}

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`, table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: create table %s: %v", ErrIO, table, err)
	}

	s.tables[table] = true
	s.logger.Debug("Cache table ready", zap.String("table", table))
	return nil
}

// Set upserts (table, key)
func (s *SQLiteStore) Set(ctx context.Context, table, key string, value []byte) error {
	if err := s.ensureTable(ctx, table); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, table)
	if _, err := s.db.ExecContext(ctx, stmt, key, value, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", ErrIO, table, key, err)
	}
	return nil
}

// Get reads (table, key)
func (s *SQLiteStore) Get(ctx context.Context, table, key string) ([]byte, bool, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return nil, false, err
	}

	var value []byte
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, table), key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get %s/%s: %v", ErrIO, table, key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Clear deletes every row of table
func (s *SQLiteStore) Clear(ctx context.Context, table string) error {
	if err := s.ensureTable(ctx, table); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
	if err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrIO, table, err)
	}

	n, _ := res.RowsAffected()
	s.logger.Info("Cache table cleared", zap.String("table", table), zap.Int64("rows", n))
	return nil
}

// Entries lists all rows of table
func (s *SQLiteStore) Entries(ctx context.Context, table string) ([]model.CacheEntry, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT key, value, updated_at FROM %s ORDER BY key`, table))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrIO, table, err)
	}
	defer rows.Close()

	var entries []model.CacheEntry
	for rows.Next() {
		var (
			key       string
			value     []byte
			updatedAt int64
		)
		if err := rows.Scan(&key, &value, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrIO, table, err)
		}
		entries = append(entries, model.CacheEntry{
			Table:     table,
			Key:       key,
			Value:     value,
			UpdatedAt: time.Unix(0, updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrIO, table, err)
	}
	return entries, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, s.path, err)
	}
	return nil
}
