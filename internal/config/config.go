// Package config defines the top-level configuration for the opiniond
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by OPINIOND_* environment variables.
type Config struct {
	Opinion  OpinionConfig  `toml:"opinion"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OpinionConfig holds Opinion openapi endpoints, credentials, and paging
// parameters for the upstream client.
type OpinionConfig struct {
	BaseURL         string   `toml:"base_url"`
	ApiKey          string   `toml:"api_key"`
	ChainID         int      `toml:"chain_id"`
	SortBy          int      `toml:"sort_by"`
	Status          string   `toml:"status"`
	PageSize        int      `toml:"page_size"`
	BatchSize       int      `toml:"batch_size"`
	CatalogMaxPages int      `toml:"catalog_max_pages"`
	DetailScanPages int      `toml:"detail_scan_pages"`
	Timeout         duration `toml:"timeout"`
}

// SupabaseConfig holds PostgreSQL connection parameters. DSN takes precedence
// over the discrete host/port/database fields when set.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"sslmode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When disabled the service
// falls back to in-process caches.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object-storage parameters for catalog archiving. Any
// S3-compatible store works (MinIO, R2, AWS).
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds catalog refresh, archive, and orderbook poll
// scheduling parameters.
type PipelineConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	ArchiveInterval duration `toml:"archive_interval"`
	PollInterval    duration `toml:"poll_interval"`
}

// ServerConfig holds HTTP server parameters. ApiKey, when set, gates every
// /api route behind bearer or X-API-Key authentication.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	ApiKey      string   `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Opinion: OpinionConfig{
			BaseURL:         "https://openapi.opinion.trade/openapi",
			ChainID:         56,
			SortBy:          5,
			Status:          "activated",
			PageSize:        50,
			BatchSize:       10,
			CatalogMaxPages: 50,
			DetailScanPages: 5,
			Timeout:         duration{30 * time.Second},
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "opiniond-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			RefreshInterval: duration{10 * time.Minute},
			ArchiveInterval: duration{6 * time.Hour},
			PollInterval:    duration{3 * time.Second},
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"refresh": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, refresh, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Opinion upstream
	if c.Opinion.BaseURL == "" {
		errs = append(errs, "opinion: base_url must not be empty")
	}
	if c.Opinion.ApiKey == "" {
		errs = append(errs, "opinion: api_key must not be empty")
	}
	if c.Opinion.ChainID <= 0 {
		errs = append(errs, "opinion: chain_id must be positive")
	}
	if c.Opinion.PageSize < 1 || c.Opinion.PageSize > 100 {
		errs = append(errs, fmt.Sprintf("opinion: page_size must be 1-100, got %d", c.Opinion.PageSize))
	}
	if c.Opinion.BatchSize < 1 {
		errs = append(errs, "opinion: batch_size must be >= 1")
	}
	if c.Opinion.CatalogMaxPages < 1 {
		errs = append(errs, "opinion: catalog_max_pages must be >= 1")
	}
	if c.Opinion.DetailScanPages < 0 {
		errs = append(errs, "opinion: detail_scan_pages must be >= 0")
	}

	// Supabase is only required when a mode that persists the catalog runs.
	needsStore := c.Mode == "refresh" || c.Mode == "full"
	if needsStore {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" && c.S3.Region == "" {
			errs = append(errs, "s3: endpoint or region must be set when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Pipeline
	if needsStore {
		if c.Pipeline.RefreshInterval.Duration <= 0 {
			errs = append(errs, "pipeline: refresh_interval must be > 0")
		}
		if c.S3.Enabled && c.Pipeline.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "pipeline: archive_interval must be > 0 when s3 is enabled")
		}
	}
	if c.Pipeline.PollInterval.Duration <= 0 {
		errs = append(errs, "pipeline: poll_interval must be > 0")
	}

	// Server
	if c.Mode == "serve" || c.Mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
