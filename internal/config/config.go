// Package config defines the top-level configuration for the nereus backend
// and provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by NEREUS_* environment variables.
type Config struct {
	Chain      ChainConfig      `toml:"chain"`
	Walrus     WalrusConfig     `toml:"walrus"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Chat       ChatConfig       `toml:"chat"`
	Tx         TxConfig         `toml:"tx"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ChainConfig holds the Sui endpoints and on-chain identifiers.
type ChainConfig struct {
	GraphQLURL    string   `toml:"graphql_url"`
	RPCURL        string   `toml:"rpc_url"`
	PackageID     string   `toml:"package_id"`
	USDCType      string   `toml:"usdc_type"`
	InspectSender string   `toml:"inspect_sender"`
	Timeout       duration `toml:"timeout"`
	PageSize      int      `toml:"page_size"`
}

// WalrusConfig holds the Walrus aggregator used for resolution evidence.
// An empty AggregatorURL disables the blob endpoint.
type WalrusConfig struct {
	AggregatorURL string   `toml:"aggregator_url"`
	Network       string   `toml:"network"`
	Timeout       duration `toml:"timeout"`
}

// AggregatorConfig controls the market refresh loop.
type AggregatorConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	// Concurrency caps in-flight price lookups; 0 is unbounded.
	Concurrency int      `toml:"concurrency"`
	CacheTTL    duration `toml:"cache_ttl"`
	// LockTTL bounds how long one replica may hold the refresh lock.
	LockTTL duration `toml:"lock_ttl"`
}

// ChatConfig selects the chat store and its posting limit.
type ChatConfig struct {
	// Store is "memory", "redis" or "postgres".
	Store      string   `toml:"store"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// TxConfig controls composed transaction caching.
type TxConfig struct {
	CacheTTL duration `toml:"cache_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters. Postgres stores
// price history and, optionally, chat.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters for the market
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards operator endpoints such as a manual refresh.
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateWindow      duration `toml:"rate_window"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// MetricsConfig holds the Prometheus namespace.
type MetricsConfig struct {
	Namespace string `toml:"namespace"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			GraphQLURL: "https://sui-testnet.mystenlabs.com/graphql",
			RPCURL:     "https://fullnode.testnet.sui.io:443",
			USDCType:   "0xb4e5d71c9937ee1b8736606f2230b89862d35f3e944f42f78bd8bc7876b66007::usdc::USDC",
			Timeout:    duration{30 * time.Second},
			PageSize:   50,
		},
		Walrus: WalrusConfig{
			AggregatorURL: "https://aggregator.walrus-testnet.walrus.space",
			Network:       "testnet",
			Timeout:       duration{15 * time.Second},
		},
		Aggregator: AggregatorConfig{
			RefreshInterval: duration{30 * time.Second},
			Concurrency:     16,
			CacheTTL:        duration{10 * time.Minute},
			LockTTL:         duration{25 * time.Second},
		},
		Chat: ChatConfig{
			Store:      "memory",
			RateLimit:  10,
			RateWindow: duration{time.Minute},
		},
		Tx: TxConfig{
			CacheTTL: duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "nereus",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "nereus:",
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "nereus-archive",
			Prefix:         "nereus",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateWindow:      duration{time.Second},
			ShutdownTimeout: duration{10 * time.Second},
		},
		Metrics:  MetricsConfig{Namespace: "nereus"},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"refresh": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validChatStores = map[string]bool{
	"memory":   true,
	"redis":    true,
	"postgres": true,
}

func checkURL(errs *[]string, field, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not an absolute URL", field, raw))
	}
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, refresh)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	checkURL(&errs, "chain: graphql_url", c.Chain.GraphQLURL)
	checkURL(&errs, "chain: rpc_url", c.Chain.RPCURL)
	if strings.TrimSpace(c.Chain.PackageID) == "" {
		errs = append(errs, "chain: package_id must be set")
	} else if !strings.HasPrefix(c.Chain.PackageID, "0x") {
		errs = append(errs, fmt.Sprintf("chain: package_id %q must start with 0x", c.Chain.PackageID))
	}
	if strings.Count(c.Chain.USDCType, "::") != 2 {
		errs = append(errs, fmt.Sprintf("chain: usdc_type %q must be <address>::<module>::<name>", c.Chain.USDCType))
	}

	if c.Walrus.AggregatorURL != "" {
		checkURL(&errs, "walrus: aggregator_url", c.Walrus.AggregatorURL)
	}

	// Aggregator
	if c.Aggregator.RefreshInterval.Duration < time.Second {
		errs = append(errs, "aggregator: refresh_interval must be at least 1s")
	}
	if c.Aggregator.Concurrency < 0 {
		errs = append(errs, "aggregator: concurrency must be >= 0")
	}

	// Chat
	if !validChatStores[c.Chat.Store] {
		errs = append(errs, fmt.Sprintf("chat: unknown store %q (valid: memory, redis, postgres)", c.Chat.Store))
	}
	if c.Chat.Store == "redis" && !c.Redis.Enabled {
		errs = append(errs, "chat: store \"redis\" requires redis.enabled")
	}
	if c.Chat.Store == "postgres" && !c.Postgres.Enabled {
		errs = append(errs, "chat: store \"postgres\" requires postgres.enabled")
	}
	if c.Chat.RateLimit < 0 {
		errs = append(errs, "chat: rate_limit must be >= 0")
	}
	if c.Chat.RateLimit > 0 && c.Chat.RateWindow.Duration <= 0 {
		errs = append(errs, "chat: rate_window must be positive when rate_limit is set")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Server
	if c.Mode == "server" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate_limit requires redis.enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
