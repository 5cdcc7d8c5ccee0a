package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.ApiKey, "CROSSARB_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "CROSSARB_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "CROSSARB_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.WsURL, "CROSSARB_KALSHI_WS_URL")

	// ── Polymarket US ──
	setStr(&cfg.PolymarketUS.ApiKeyID, "CROSSARB_POLYMARKET_US_API_KEY_ID")
	setStr(&cfg.PolymarketUS.PrivateKeyPath, "CROSSARB_POLYMARKET_US_PRIVATE_KEY_PATH")
	setStr(&cfg.PolymarketUS.BaseURL, "CROSSARB_POLYMARKET_US_BASE_URL")
	setStr(&cfg.PolymarketUS.WsURL, "CROSSARB_POLYMARKET_US_WS_URL")

	// ── Engine ──
	setDuration(&cfg.Engine.ScanInterval, "CROSSARB_ENGINE_SCAN_INTERVAL")
	setFloat64(&cfg.Engine.MinEdge, "CROSSARB_ENGINE_MIN_EDGE")
	setBool(&cfg.Engine.AllowDoubleSell, "CROSSARB_ENGINE_ALLOW_DOUBLE_SELL")
	setBool(&cfg.Engine.Execute, "CROSSARB_ENGINE_EXECUTE")
	setDuration(&cfg.Engine.CallTimeout, "CROSSARB_ENGINE_CALL_TIMEOUT")

	// ── Mapping ──
	setStr(&cfg.Mapping.Path, "CROSSARB_MAPPING_PATH")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CROSSARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CROSSARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROSSARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSARB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CROSSARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CROSSARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CROSSARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CROSSARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TobTTL, "CROSSARB_REDIS_TOB_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CROSSARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CROSSARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROSSARB_S3_FORCE_PATH_STYLE")

	// ── Market data ──
	setBool(&cfg.MarketData.Enabled, "CROSSARB_MARKET_DATA_ENABLED")
	setStr(&cfg.MarketData.Dir, "CROSSARB_MARKET_DATA_DIR")
	setDuration(&cfg.MarketData.ArchiveInterval, "CROSSARB_MARKET_DATA_ARCHIVE_INTERVAL")
	setStr(&cfg.MarketData.ArchivePrefix, "CROSSARB_MARKET_DATA_ARCHIVE_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CROSSARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "CROSSARB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CROSSARB_SERVER_RATE_LIMIT")

	// ── Alert ──
	setBool(&cfg.Alert.Enabled, "CROSSARB_ALERT_ENABLED")
	setStr(&cfg.Alert.Telegram.Token, "CROSSARB_ALERT_TELEGRAM_TOKEN")
	setStr(&cfg.Alert.Telegram.ChatID, "CROSSARB_ALERT_TELEGRAM_CHAT_ID")
	setStr(&cfg.Alert.Discord.WebhookURL, "CROSSARB_ALERT_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSARB_MODE")
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
