// Package timeouts provides centralized timeout values for handler
// operations.
//
// These are used with context.WithTimeout for database and blob-store
// work inside HTTP handlers. Central values keep deadlines consistent
// and easy to tune.
//
// Guidelines:
//   - Ping: health checks
//   - Short: single-document reads
//   - Medium: list queries, moderate writes, transactional updates
//   - Long: deletes with cleanup, operations touching several collections
//   - Batch: chunked bulk deletes and imports
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Defaults, used unless Configure or the TIMEOUT_* env vars override them.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

// Ping returns the timeout for health checks.
func Ping() time.Duration { mu.RLock(); defer mu.RUnlock(); return ping }

// Short returns the timeout for single-document reads.
func Short() time.Duration { mu.RLock(); defer mu.RUnlock(); return short }

// Medium returns the timeout for list queries and moderate writes.
func Medium() time.Duration { mu.RLock(); defer mu.RUnlock(); return medium }

// Long returns the timeout for multi-collection work such as cascading
// deletes.
func Long() time.Duration { mu.RLock(); defer mu.RUnlock(); return long }

// Batch returns the timeout for chunked bulk operations.
func Batch() time.Duration { mu.RLock(); defer mu.RUnlock(); return batch }

// Config holds override values; zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure applies overrides. Call during startup, before handlers are
// registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// Reset restores defaults. Useful for testing.
func Reset() {
	Configure(Config{DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch})
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG, and TIMEOUT_BATCH (duration strings like "5s"). Invalid
// or missing values keep the current setting. Returns how many values
// were applied.
func ConfigureFromEnv() int {
	applied := 0
	cfg := Config{}
	read := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
				applied++
			}
		}
	}
	read("TIMEOUT_PING", &cfg.Ping)
	read("TIMEOUT_SHORT", &cfg.Short)
	read("TIMEOUT_MEDIUM", &cfg.Medium)
	read("TIMEOUT_LONG", &cfg.Long)
	read("TIMEOUT_BATCH", &cfg.Batch)
	Configure(cfg)
	return applied
}
