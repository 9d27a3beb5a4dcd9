package browsecache

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apatil/browsecache-go/internal/store/disk"
	"github.com/apatil/browsecache-go/internal/store/memory"
	"github.com/apatil/browsecache-go/pkg/metrics"
)

// PersistedBackend selects the second tier implementation.
type PersistedBackend string

const (
	// BackendDisk persists entries as one file per key under CacheDir.
	BackendDisk PersistedBackend = "disk"
	// BackendRedis persists entries in a Redis instance.
	BackendRedis PersistedBackend = "redis"
	// BackendNone disables the persisted tier entirely.
	BackendNone PersistedBackend = "none"
)

// Default policy values.
const (
	DefaultMaxEntries          = memory.DefaultCapacity
	DefaultTTL                 = 5 * time.Minute
	DefaultMaxDiskBytes        = disk.DefaultMaxBytes
	DefaultMaintenanceInterval = 30 * time.Minute
)

// Config holds cache configuration. Use NewDefaultConfig and the With*
// methods to build one.
type Config struct {
	// MaxEntries bounds the memory tier entry count.
	MaxEntries int

	// DefaultTTL applies to entries stored without an explicit TTL.
	// Zero means entries never expire.
	DefaultTTL time.Duration

	// Backend selects the persisted tier. Defaults to BackendDisk.
	Backend PersistedBackend

	// CacheDir is the persisted tier directory (disk backend).
	CacheDir string

	// MaxDiskBytes bounds the persisted tier size (disk backend).
	MaxDiskBytes int64

	// Compression gzips persisted entries (disk backend).
	Compression bool

	// RedisClient backs the persisted tier when Backend is BackendRedis.
	RedisClient redis.Cmdable

	// RedisKeyPrefix namespaces keys in Redis.
	RedisKeyPrefix string

	// MaintenanceInterval is the period between scheduled maintenance
	// sweeps. Zero disables the scheduler; maintenance can still be run
	// explicitly.
	MaintenanceInterval time.Duration

	// Hooks holds event callbacks.
	Hooks *Hooks

	// Logger receives cache log output.
	Logger Logger

	// Metrics configures statistics export. Nil disables export.
	Metrics *metrics.Config

	// MetricsExporter receives exported statistics when Metrics.Enabled.
	MetricsExporter metrics.Exporter
}

// NewDefaultConfig creates a config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		MaxEntries:          DefaultMaxEntries,
		DefaultTTL:          DefaultTTL,
		Backend:             BackendDisk,
		MaxDiskBytes:        DefaultMaxDiskBytes,
		MaintenanceInterval: DefaultMaintenanceInterval,
		Hooks:               NewHooks(),
		Logger:              NewDefaultLogger(LogLevelInfo),
	}
}

// WithMaxEntries sets the memory tier capacity.
func (c *Config) WithMaxEntries(n int) *Config {
	c.MaxEntries = n
	return c
}

// WithDefaultTTL sets the default entry TTL.
func (c *Config) WithDefaultTTL(ttl time.Duration) *Config {
	c.DefaultTTL = ttl
	return c
}

// WithCacheDir sets the disk backend directory.
func (c *Config) WithCacheDir(dir string) *Config {
	c.CacheDir = dir
	c.Backend = BackendDisk
	return c
}

// WithMaxDiskBytes sets the disk backend byte budget.
func (c *Config) WithMaxDiskBytes(n int64) *Config {
	c.MaxDiskBytes = n
	return c
}

// WithCompression enables gzip compression of persisted entries.
func (c *Config) WithCompression(enabled bool) *Config {
	c.Compression = enabled
	return c
}

// WithRedis selects Redis as the persisted tier.
func (c *Config) WithRedis(client redis.Cmdable) *Config {
	c.RedisClient = client
	c.Backend = BackendRedis
	return c
}

// WithRedisKeyPrefix sets the Redis key namespace.
func (c *Config) WithRedisKeyPrefix(prefix string) *Config {
	c.RedisKeyPrefix = prefix
	return c
}

// WithoutPersistence disables the persisted tier.
func (c *Config) WithoutPersistence() *Config {
	c.Backend = BackendNone
	return c
}

// WithMaintenanceInterval sets the maintenance sweep period.
func (c *Config) WithMaintenanceInterval(interval time.Duration) *Config {
	c.MaintenanceInterval = interval
	return c
}

// WithHooks sets the event callbacks.
func (c *Config) WithHooks(hooks *Hooks) *Config {
	c.Hooks = hooks
	return c
}

// WithLogger sets the logger.
func (c *Config) WithLogger(logger Logger) *Config {
	c.Logger = logger
	return c
}

// WithMetrics enables statistics export through the given exporter.
func (c *Config) WithMetrics(cfg *metrics.Config, exporter metrics.Exporter) *Config {
	c.Metrics = cfg
	c.MetricsExporter = exporter
	return c
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.MaxEntries <= 0 {
		return NewCacheError(FaultUnclassified, "", "MaxEntries must be positive", nil)
	}
	if c.DefaultTTL < 0 {
		return NewCacheError(FaultUnclassified, "", "DefaultTTL must not be negative", nil)
	}
	switch c.Backend {
	case BackendDisk:
		if c.CacheDir == "" {
			return NewCacheError(FaultUnclassified, "", "CacheDir is required for the disk backend", nil)
		}
		if c.MaxDiskBytes <= 0 {
			return NewCacheError(FaultUnclassified, "", "MaxDiskBytes must be positive", nil)
		}
	case BackendRedis:
		if c.RedisClient == nil {
			return NewCacheError(FaultUnclassified, "", "RedisClient is required for the redis backend", nil)
		}
	case BackendNone:
	default:
		return NewCacheError(FaultUnclassified, "", "unknown persisted backend: "+string(c.Backend), nil)
	}
	if c.MaintenanceInterval < 0 {
		return NewCacheError(FaultUnclassified, "", "MaintenanceInterval must not be negative", nil)
	}
	return nil
}
