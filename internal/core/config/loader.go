package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/retryfetch/internal/errlog"
	"github.com/vietddude/retryfetch/internal/infra/fetch"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Retry.RequestTimeout == 0 {
		cfg.Retry.RequestTimeout = fetch.DefaultTimeout
	}
	if cfg.ErrorLog.Capacity == 0 {
		cfg.ErrorLog.Capacity = errlog.DefaultCapacity
	}
	if cfg.ErrorLog.PersistedCapacity == 0 {
		cfg.ErrorLog.PersistedCapacity = errlog.DefaultPersistedCapacity
	}
	if cfg.ErrorLog.PersistKey == "" {
		cfg.ErrorLog.PersistKey = errlog.DefaultPersistKey
	}
	if cfg.ErrorLog.PersistTimeout == 0 {
		cfg.ErrorLog.PersistTimeout = 2 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageMemory
	}
}

// Validate rejects configurations that cannot be wired.
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case StorageNone, StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("storage driver %q requires redis.url", c.Storage.Driver)
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("storage driver %q requires database.url", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.ErrorLog.Forward && c.Redis.URL == "" {
		return fmt.Errorf("error_log.forward requires redis.url")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.base_delay (%v) exceeds retry.max_delay (%v)", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	return nil
}
