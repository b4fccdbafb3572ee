package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Chain.PackageID = "0x5"
	return cfg
}

func TestDefaultsNeedPackageID(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package_id must be set")

	cfg = validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Chain.GraphQLURL = "not a url"
	cfg.Chat.Store = "redis"
	cfg.Server.RateLimit = 5

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, `unknown log_level "loud"`)
	assert.Contains(t, msg, "chain: graphql_url")
	assert.Contains(t, msg, "requires redis.enabled")
	assert.Contains(t, msg, "server: rate_limit requires redis.enabled")
}

func TestValidatePostgres(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Enabled = true
	cfg.Postgres.Host = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host")

	cfg.Postgres.DSN = "postgres://u:p@db:5432/nereus"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nereus.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "refresh"

[chain]
package_id = "0xabc"
page_size = 20

[aggregator]
refresh_interval = "45s"

[server]
cors_origins = ["https://a.example"]
`), 0o600))

	t.Setenv("NEREUS_CHAIN_PAGE_SIZE", "25")
	t.Setenv("NEREUS_SERVER_CORS_ORIGINS", "https://b.example, https://c.example,")
	t.Setenv("NEREUS_CHAT_RATE_WINDOW", "2m")
	t.Setenv("NEREUS_REDIS_ENABLED", "not-a-bool")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "refresh", cfg.Mode)
	assert.Equal(t, "0xabc", cfg.Chain.PackageID)
	assert.Equal(t, 25, cfg.Chain.PageSize)
	assert.Equal(t, 45*time.Second, cfg.Aggregator.RefreshInterval.Duration)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Chat.RateWindow.Duration)
	assert.False(t, cfg.Redis.Enabled, "unparseable values keep the default")
	// untouched sections keep their defaults
	assert.Equal(t, Defaults().Chain.USDCType, cfg.Chain.USDCType)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Mode)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chain\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "pw"
	cfg.Postgres.DSN = "postgres://u:pw@h/db"
	cfg.S3.SecretKey = "secret"
	cfg.Server.APIKey = "key"

	out := RedactedConfig(cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.S3.AccessKey)

	out.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
	assert.Equal(t, "pw", cfg.Postgres.Password)
}
