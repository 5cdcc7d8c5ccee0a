package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// validConfig returns a minimal configuration that passes Validate.
func validConfig() Config {
	cfg := Defaults()
	cfg.Kalshi.ApiKey = "key-id"
	cfg.Kalshi.RsaPrivateKeyPath = "/keys/kalshi.pem"
	cfg.PolymarketUS.ApiKeyID = "pm-key"
	cfg.PolymarketUS.PrivateKeyPath = "/keys/pm.pem"
	return cfg
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "record"
log_level = "debug"

[engine]
scan_interval = "250ms"
min_edge = 0.05

[redis]
enabled = true
addr = "redis.internal:6379"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "record", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.ScanInterval.Duration)
	assert.Equal(t, 0.05, cfg.Engine.MinEdge)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.elections.kalshi.com/trade-api/v2", cfg.Kalshi.BaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Engine.CallTimeout.Duration)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"

[kalshi]
api_key = "from-file"
`)
	t.Setenv("CROSSARB_KALSHI_API_KEY", "from-env")
	t.Setenv("CROSSARB_ENGINE_MIN_EDGE", "0.1")
	t.Setenv("CROSSARB_ENGINE_EXECUTE", "true")
	t.Setenv("CROSSARB_SERVER_PORT", "9999")
	t.Setenv("CROSSARB_ENGINE_SCAN_INTERVAL", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Kalshi.ApiKey)
	assert.Equal(t, 0.1, cfg.Engine.MinEdge)
	assert.True(t, cfg.Engine.Execute)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Engine.ScanInterval.Duration)
}

func TestLoadIgnoresMalformedEnvValues(t *testing.T) {
	path := writeConfig(t, `mode = "monitor"`)
	t.Setenv("CROSSARB_SERVER_PORT", "not-a-number")
	t.Setenv("CROSSARB_ENGINE_SCAN_INTERVAL", "soon")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Engine.ScanInterval.Duration)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown mode":             func(c *Config) { c.Mode = "turbo" },
		"unknown log level":        func(c *Config) { c.LogLevel = "verbose" },
		"missing kalshi api key":   func(c *Config) { c.Kalshi.ApiKey = "" },
		"missing polymarket key":   func(c *Config) { c.PolymarketUS.ApiKeyID = "" },
		"zero scan interval":       func(c *Config) { c.Engine.ScanInterval = duration{} },
		"min edge out of range":    func(c *Config) { c.Engine.MinEdge = 1.5 },
		"execute outside arb mode": func(c *Config) { c.Mode = "monitor"; c.Engine.Execute = true },
		"empty mapping path":       func(c *Config) { c.Mapping.Path = "" },
		"postgres without target": func(c *Config) {
			c.Postgres.Enabled = true
			c.Postgres.Host = ""
			c.Postgres.DSN = ""
		},
		"postgres pool inverted": func(c *Config) {
			c.Postgres.Enabled = true
			c.Postgres.PoolMinConns = 20
			c.Postgres.PoolMaxConns = 5
		},
		"redis without addr": func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" },
		"s3 without recording": func(c *Config) {
			c.S3.Enabled = true
			c.MarketData.Enabled = false
		},
		"server port out of range": func(c *Config) { c.Server.Enabled = true; c.Server.Port = 70000 },
		"negative rate limit":      func(c *Config) { c.Server.Enabled = true; c.Server.RateLimit = -1 },
		"alert without channel":    func(c *Config) { c.Alert.Enabled = true },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateDSNReplacesHostFields(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Enabled = true
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/crossarb"
	cfg.Postgres.Host = ""
	cfg.Postgres.Port = 0
	cfg.Postgres.Database = ""
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	cfg.Kalshi.ApiKey = ""
	cfg.Mapping.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "kalshi: api_key")
	assert.Contains(t, err.Error(), "mapping: path")
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "monitoring-key"
	cfg.Alert.Discord.WebhookURL = "https://discord.com/api/webhooks/1/abc"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Kalshi.ApiKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Alert.Discord.WebhookURL)

	// Non-secret fields and the original are untouched.
	assert.Equal(t, cfg.Kalshi.BaseURL, red.Kalshi.BaseURL)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)

	// Empty secrets stay empty rather than gaining a placeholder.
	assert.Empty(t, red.Redis.Password)
}
