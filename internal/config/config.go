// Package config resolves reel settings from flags, environment and the
// optional $HOME/.reel.yaml file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/atikulmunna/reel/internal/cache"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REEL_CACHE_TTL.
const EnvPrefix = "REEL"

type Config struct {
	Cache  CacheConfig
	Search SearchConfig
	Server ServerConfig
	Worker WorkerConfig
	Log    LogConfig
}

type CacheConfig struct {
	MaxEntries    int
	MaxBytes      int64
	TTL           time.Duration
	PurgeInterval time.Duration
}

type SearchConfig struct {
	SimplifyWindow time.Duration
}

type ServerConfig struct {
	Port      int
	RateLimit float64 // requests per second per client
	RateBurst int
}

type WorkerConfig struct {
	QueueSize   int
	Parallelism int
}

type LogConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)
	v.SetDefault("cache.max_bytes", int64(cache.DefaultMaxBytes))
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.purge_interval", time.Minute)
	v.SetDefault("search.simplify_window", time.Second)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("worker.queue_size", 64)
	v.SetDefault("worker.parallelism", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv makes REEL_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads a validated Config out of v. Defaults are applied first, so an
// empty viper yields the stock configuration.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Cache: CacheConfig{
			MaxEntries:    v.GetInt("cache.max_entries"),
			MaxBytes:      v.GetInt64("cache.max_bytes"),
			TTL:           v.GetDuration("cache.ttl"),
			PurgeInterval: v.GetDuration("cache.purge_interval"),
		},
		Search: SearchConfig{
			SimplifyWindow: v.GetDuration("search.simplify_window"),
		},
		Server: ServerConfig{
			Port:      v.GetInt("server.port"),
			RateLimit: v.GetFloat64("server.rate_limit"),
			RateBurst: v.GetInt("server.rate_burst"),
		},
		Worker: WorkerConfig{
			QueueSize:   v.GetInt("worker.queue_size"),
			Parallelism: v.GetInt("worker.parallelism"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Cache.MaxEntries <= 0:
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	case c.Cache.MaxBytes <= 0:
		return fmt.Errorf("cache.max_bytes must be positive, got %d", c.Cache.MaxBytes)
	case c.Cache.TTL < 0:
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	case c.Cache.PurgeInterval <= 0:
		return fmt.Errorf("cache.purge_interval must be positive, got %s", c.Cache.PurgeInterval)
	case c.Search.SimplifyWindow < 0:
		return fmt.Errorf("search.simplify_window must not be negative, got %s", c.Search.SimplifyWindow)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	case c.Server.RateLimit < 0:
		return fmt.Errorf("server.rate_limit must not be negative, got %g", c.Server.RateLimit)
	case c.Server.RateLimit > 0 && c.Server.RateBurst <= 0:
		return fmt.Errorf("server.rate_burst must be positive when rate limiting, got %d", c.Server.RateBurst)
	case c.Worker.QueueSize <= 0:
		return fmt.Errorf("worker.queue_size must be positive, got %d", c.Worker.QueueSize)
	case c.Worker.Parallelism < 0:
		return fmt.Errorf("worker.parallelism must not be negative, got %d", c.Worker.Parallelism)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
