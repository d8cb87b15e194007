package config

import (
	"time"

	"github.com/vietddude/retryfetch/internal/infra/fetch"
	redisclient "github.com/vietddude/retryfetch/internal/infra/redis"
	"github.com/vietddude/retryfetch/internal/infra/storage/postgres"
)

// Storage drivers for the persisted error slot.
const (
	StorageNone     = "none"
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Site     SiteConfig         `yaml:"site"`
	Retry    RetryConfig        `yaml:"retry"`
	ErrorLog ErrorLogConfig     `yaml:"error_log"`
	Storage  StorageConfig      `yaml:"storage"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SiteConfig describes the ambient environment errors are logged from.
type SiteConfig struct {
	Debug    bool   `yaml:"debug"`
	URL      string `yaml:"url"`
	ClientID string `yaml:"client_id"`
}

// RetryConfig holds the default retry policy for outbound requests.
type RetryConfig struct {
	MaxRetries        *int          `yaml:"max_retries"` // nil = default, 0 = no retries
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	RetryableStatuses []int         `yaml:"retryable_statuses"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// ErrorLogConfig bounds the in-memory and persisted error trails.
type ErrorLogConfig struct {
	Capacity          int           `yaml:"capacity"`
	PersistedCapacity int           `yaml:"persisted_capacity"`
	PersistKey        string        `yaml:"persist_key"`
	PersistTimeout    time.Duration `yaml:"persist_timeout"`
	Forward           bool          `yaml:"forward"` // publish entries to redis.channel
}

// StorageConfig selects the persisted slot backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // none, memory, redis, postgres
}

// FetchConfig converts the retry section into the handler's policy.
func (r RetryConfig) FetchConfig() fetch.RetryConfig {
	cfg := fetch.DefaultRetryConfig
	if r.MaxRetries != nil {
		cfg.MaxRetries = max(*r.MaxRetries, 0)
	}
	if r.BaseDelay > 0 {
		cfg.BaseDelay = r.BaseDelay
	}
	if r.MaxDelay > 0 {
		cfg.MaxDelay = r.MaxDelay
	}
	if len(r.RetryableStatuses) > 0 {
		cfg.RetryableStatuses = r.RetryableStatuses
	}
	return cfg
}
