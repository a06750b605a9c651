package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yourusername/kuco/internal/cache"
)

const (
	defaultLogFile      = "/tmp/kuco.log"
	defaultLogTailLines = 200
)

// KUCO_SYNC_FAST_INTERVAL overrides sync.fast_interval
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds the application configuration
type Config struct {
	// Cluster configuration
	Kubeconfig string        `mapstructure:"kubeconfig"`
	Context    string        `mapstructure:"context"`
	Timeout    time.Duration `mapstructure:"timeout"`

	// Synchronizer configuration
	FastInterval  time.Duration `mapstructure:"fast_interval"`
	SlowInterval  time.Duration `mapstructure:"slow_interval"`
	PodFetchDelay time.Duration `mapstructure:"pod_fetch_delay"`

	// Cache configuration
	CacheBackend string `mapstructure:"backend"`
	CachePath    string `mapstructure:"path"`
	CacheTable   string `mapstructure:"table"`
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisDB      int    `mapstructure:"redis_db"`
	RedisPrefix  string `mapstructure:"redis_prefix"`

	// UI configuration
	Locale       string `mapstructure:"locale"`
	LogTailLines int    `mapstructure:"log_tail_lines"`

	// Logging configuration
	LogLevel string `mapstructure:"level"`
	LogFile  string `mapstructure:"file"`
}

// CacheOptions returns the store options described by the config
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:     c.CacheBackend,
		Path:        c.CachePath,
		RedisAddr:   c.RedisAddr,
		RedisDB:     c.RedisDB,
		RedisPrefix: c.RedisPrefix,
	}
}

// RefresherOptions returns the synchronizer options described by the config
func (c *Config) RefresherOptions() cache.RefresherOptions {
	return cache.RefresherOptions{
		Table:         c.CacheTable,
		FastInterval:  c.FastInterval,
		SlowInterval:  c.SlowInterval,
		PodFetchDelay: c.PodFetchDelay,
		LogTailLines:  int64(c.LogTailLines),
	}
}

// StaleThreshold is the age after which the cache counts as stale
func (c *Config) StaleThreshold() time.Duration {
	return 2 * c.FastInterval
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults, nested keys align with config/config.yaml
	v.SetDefault("cluster.kubeconfig", "")
	v.SetDefault("cluster.context", "")
	v.SetDefault("cluster.timeout", "0s")

	v.SetDefault("sync.fast_interval", cache.DefaultFastInterval.String())
	v.SetDefault("sync.slow_interval", cache.DefaultSlowInterval.String())
	v.SetDefault("sync.pod_fetch_delay", cache.DefaultPodFetchDelay.String())

	v.SetDefault("cache.backend", cache.BackendSQLite)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.table", cache.DefaultTable)
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", cache.DefaultRedisPrefix)

	v.SetDefault("ui.locale", "en")
	v.SetDefault("ui.log_tail_lines", defaultLogTailLines)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", defaultLogFile)

	// Home defaults
	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		v.SetDefault("cluster.kubeconfig", filepath.Join(home, ".kube", "config"))
		v.SetDefault("cache.path", defaultCachePath(home))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.kuco")
		v.AddConfigPath("/etc/kuco")
	}

	v.SetEnvPrefix("KUCO")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Kubeconfig:    v.GetString("cluster.kubeconfig"),
		Context:       v.GetString("cluster.context"),
		Timeout:       v.GetDuration("cluster.timeout"),
		FastInterval:  v.GetDuration("sync.fast_interval"),
		SlowInterval:  v.GetDuration("sync.slow_interval"),
		PodFetchDelay: v.GetDuration("sync.pod_fetch_delay"),
		CacheBackend:  v.GetString("cache.backend"),
		CachePath:     v.GetString("cache.path"),
		CacheTable:    v.GetString("cache.table"),
		RedisAddr:     v.GetString("cache.redis_addr"),
		RedisDB:       v.GetInt("cache.redis_db"),
		RedisPrefix:   v.GetString("cache.redis_prefix"),
		Locale:        v.GetString("ui.locale"),
		LogTailLines:  v.GetInt("ui.log_tail_lines"),
		LogLevel:      v.GetString("logging.level"),
		LogFile:       v.GetString("logging.file"),
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize replaces zero values with defaults and validates enumerations
func (c *Config) Normalize() error {
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.FastInterval <= 0 {
		c.FastInterval = cache.DefaultFastInterval
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = cache.DefaultSlowInterval
	}
	if c.PodFetchDelay <= 0 {
		c.PodFetchDelay = cache.DefaultPodFetchDelay
	}

	switch c.CacheBackend {
	case "":
		c.CacheBackend = cache.BackendSQLite
	case cache.BackendSQLite, cache.BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q (want %s or %s)", c.CacheBackend, cache.BackendSQLite, cache.BackendRedis)
	}

	if c.CachePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CachePath = defaultCachePath(home)
		} else {
			c.CachePath = cache.MemoryPath
		}
	}
	if !cache.ValidTableName(c.CacheTable) {
		c.CacheTable = cache.DefaultTable
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "127.0.0.1:6379"
	}
	if c.RedisDB < 0 {
		c.RedisDB = 0
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = cache.DefaultRedisPrefix
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.LogTailLines <= 0 {
		c.LogTailLines = defaultLogTailLines
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile
	}
	return nil
}

func defaultCachePath(home string) string {
	return filepath.Join(home, ".kuco", "cache.db")
}
