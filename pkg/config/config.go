// Package config loads the reader's settings from a TOML file and lets
// MANGAS_* environment variables override individual values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/utils"
)

const DefaultPath = "~/.mangas/config.toml"

// Duration accepts strings such as "5s" in both TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type CatalogConfig struct {
	BaseURL   string   `toml:"base_url" env:"MANGAS_CATALOG_URL"`
	ProxyURL  string   `toml:"proxy_url" env:"MANGAS_PROXY_URL"`
	Timeout   Duration `toml:"timeout" env:"MANGAS_CATALOG_TIMEOUT"`
	RateLimit float64  `toml:"rate_limit" env:"MANGAS_CATALOG_RATE_LIMIT"`
	Burst     int      `toml:"burst" env:"MANGAS_CATALOG_BURST"`
}

type StorageConfig struct {
	Backend    string `toml:"backend" env:"MANGAS_STORAGE_BACKEND"`
	Path       string `toml:"path" env:"MANGAS_DB_PATH"`
	RedisURL   string `toml:"redis_url" env:"MANGAS_REDIS_URL"`
	QuotaBytes int64  `toml:"quota_bytes" env:"MANGAS_STORAGE_QUOTA"`
}

type ReaderConfig struct {
	SaveInterval Duration `toml:"save_interval" env:"MANGAS_READER_SAVE_INTERVAL"`
	RestoreDelay Duration `toml:"restore_delay" env:"MANGAS_READER_RESTORE_DELAY"`
}

type BrowseConfig struct {
	Lookahead int `toml:"lookahead" env:"MANGAS_BROWSE_LOOKAHEAD"`
}

type ProxyConfig struct {
	CacheSize int `toml:"cache_size" env:"MANGAS_PROXY_CACHE_SIZE"`
}

type ExportConfig struct {
	Dir         string `toml:"dir" env:"MANGAS_EXPORT_DIR"`
	Concurrency int    `toml:"concurrency" env:"MANGAS_EXPORT_CONCURRENCY"`
}

type LogConfig struct {
	Level string `toml:"level" env:"MANGAS_LOG_LEVEL"`
	File  string `toml:"file" env:"MANGAS_LOG_FILE"`
}

type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Storage StorageConfig `toml:"storage"`
	Reader  ReaderConfig  `toml:"reader"`
	Browse  BrowseConfig  `toml:"browse"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Export  ExportConfig  `toml:"export"`
	Log     LogConfig     `toml:"log"`
}

func Default() Config {
	return Config{
		Catalog: CatalogConfig{
			BaseURL:   "https://comick.live",
			ProxyURL:  "https://image-proxy-viewer.onrender.com/",
			Timeout:   Duration{15 * time.Second},
			RateLimit: 2,
			Burst:     4,
		},
		Storage: StorageConfig{
			Backend:    data.BackendDuckDB,
			Path:       "~/.mangas/mangas.db",
			QuotaBytes: data.DefaultQuota,
		},
		Reader: ReaderConfig{
			SaveInterval: Duration{5 * time.Second},
			RestoreDelay: Duration{100 * time.Millisecond},
		},
		Browse: BrowseConfig{Lookahead: 4},
		Proxy:  ProxyConfig{CacheSize: 64},
		Export: ExportConfig{Dir: "~/Downloads", Concurrency: 3},
		Log:    LogConfig{Level: "INFO", File: "~/.mangas/mangas.log"},
	}
}

// Load reads path over the defaults (a missing file is fine), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(utils.ExpandPath(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
		default:
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	cfg.Storage.Path = utils.ExpandPath(cfg.Storage.Path)
	cfg.Export.Dir = utils.ExpandPath(cfg.Export.Dir)
	cfg.Log.File = utils.ExpandPath(cfg.Log.File)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case data.BackendDuckDB, data.BackendMemory:
	case data.BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("config: storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("config: catalog.base_url is empty")
	}
	if c.Catalog.RateLimit <= 0 || c.Catalog.Burst <= 0 {
		return fmt.Errorf("config: catalog.rate_limit and catalog.burst must be positive")
	}
	if c.Reader.SaveInterval.Duration <= 0 || c.Reader.RestoreDelay.Duration < 0 {
		return fmt.Errorf("config: reader intervals must be positive")
	}
	if c.Export.Concurrency <= 0 {
		return fmt.Errorf("config: export.concurrency must be positive")
	}
	return nil
}

// StoreOptions maps the storage section onto the data package.
func (c Config) StoreOptions() data.StoreOptions {
	return data.StoreOptions{
		Backend:  c.Storage.Backend,
		Path:     c.Storage.Path,
		RedisURL: c.Storage.RedisURL,
		Quota:    c.Storage.QuotaBytes,
	}
}
