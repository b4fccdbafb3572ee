package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NEREUS_* environment variable overrides, and
// returns the final Config. A missing file is not an error so the service
// can run from the environment alone. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NEREUS_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.GraphQLURL, "NEREUS_CHAIN_GRAPHQL_URL")
	setStr(&cfg.Chain.RPCURL, "NEREUS_CHAIN_RPC_URL")
	setStr(&cfg.Chain.PackageID, "NEREUS_CHAIN_PACKAGE_ID")
	setStr(&cfg.Chain.USDCType, "NEREUS_CHAIN_USDC_TYPE")
	setStr(&cfg.Chain.InspectSender, "NEREUS_CHAIN_INSPECT_SENDER")
	setDuration(&cfg.Chain.Timeout, "NEREUS_CHAIN_TIMEOUT")
	setInt(&cfg.Chain.PageSize, "NEREUS_CHAIN_PAGE_SIZE")

	// ── Walrus ──
	setStr(&cfg.Walrus.AggregatorURL, "NEREUS_WALRUS_AGGREGATOR_URL")
	setStr(&cfg.Walrus.Network, "NEREUS_WALRUS_NETWORK")

	// ── Aggregator ──
	setDuration(&cfg.Aggregator.RefreshInterval, "NEREUS_AGGREGATOR_REFRESH_INTERVAL")
	setInt(&cfg.Aggregator.Concurrency, "NEREUS_AGGREGATOR_CONCURRENCY")

	// ── Chat ──
	setStr(&cfg.Chat.Store, "NEREUS_CHAT_STORE")
	setInt(&cfg.Chat.RateLimit, "NEREUS_CHAT_RATE_LIMIT")
	setDuration(&cfg.Chat.RateWindow, "NEREUS_CHAT_RATE_WINDOW")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "NEREUS_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "NEREUS_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // platform alias
	setStr(&cfg.Postgres.Host, "NEREUS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NEREUS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NEREUS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NEREUS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NEREUS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NEREUS_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "NEREUS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "NEREUS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "NEREUS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NEREUS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NEREUS_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "NEREUS_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "NEREUS_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "NEREUS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "NEREUS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NEREUS_S3_REGION")
	setStr(&cfg.S3.Bucket, "NEREUS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NEREUS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NEREUS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "NEREUS_S3_USE_SSL")

	// ── Server ──
	setInt(&cfg.Server.Port, "NEREUS_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform alias
	setStringSlice(&cfg.Server.CORSOrigins, "NEREUS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NEREUS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "NEREUS_SERVER_RATE_LIMIT")

	// ── Top-level ──
	setStr(&cfg.Mode, "NEREUS_MODE")
	setStr(&cfg.LogLevel, "NEREUS_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and parses.

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
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
