package model

import "time"

// CacheEntry is a single row of a cache table
type CacheEntry struct {
	Table     string    // Logical table the row belongs to
	Key       string    // Hierarchical key, unique within Table
	Value     []byte    // Raw stored bytes (JSON for every key kuco writes)
	UpdatedAt time.Time // Time of the last full replacement
}
