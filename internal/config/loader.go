package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies OPINIOND_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known OPINIOND_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Opinion ──
	setStr(&cfg.Opinion.BaseURL, "OPINIOND_OPINION_BASE_URL")
	setStr(&cfg.Opinion.ApiKey, "OPINIOND_OPINION_API_KEY")
	setStr(&cfg.Opinion.ApiKey, "OPINION_API_KEY") // compatibility alias
	setInt(&cfg.Opinion.ChainID, "OPINIOND_OPINION_CHAIN_ID")
	setInt(&cfg.Opinion.SortBy, "OPINIOND_OPINION_SORT_BY")
	setStr(&cfg.Opinion.Status, "OPINIOND_OPINION_STATUS")
	setInt(&cfg.Opinion.PageSize, "OPINIOND_OPINION_PAGE_SIZE")
	setInt(&cfg.Opinion.BatchSize, "OPINIOND_OPINION_BATCH_SIZE")
	setInt(&cfg.Opinion.CatalogMaxPages, "OPINIOND_OPINION_CATALOG_MAX_PAGES")
	setInt(&cfg.Opinion.DetailScanPages, "OPINIOND_OPINION_DETAIL_SCAN_PAGES")
	setDuration(&cfg.Opinion.Timeout, "OPINIOND_OPINION_TIMEOUT")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "OPINIOND_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "OPINIOND_DATABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "OPINIOND_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "OPINIOND_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "OPINIOND_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "OPINIOND_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "OPINIOND_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "OPINIOND_SUPABASE_SSLMODE")
	setInt(&cfg.Supabase.PoolMaxConns, "OPINIOND_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "OPINIOND_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "OPINIOND_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "OPINIOND_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "OPINIOND_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OPINIOND_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OPINIOND_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OPINIOND_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OPINIOND_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OPINIOND_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "OPINIOND_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "OPINIOND_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "OPINIOND_S3_REGION")
	setStr(&cfg.S3.Bucket, "OPINIOND_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "OPINIOND_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "OPINIOND_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "OPINIOND_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "OPINIOND_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.RefreshInterval, "OPINIOND_PIPELINE_REFRESH_INTERVAL")
	setDuration(&cfg.Pipeline.ArchiveInterval, "OPINIOND_PIPELINE_ARCHIVE_INTERVAL")
	setDuration(&cfg.Pipeline.PollInterval, "OPINIOND_PIPELINE_POLL_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "OPINIOND_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "OPINIOND_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "OPINIOND_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "OPINIOND_MODE")
	setStr(&cfg.LogLevel, "OPINIOND_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
