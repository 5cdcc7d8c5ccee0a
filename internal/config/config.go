// Package config defines the top-level configuration for the arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Kalshi       KalshiConfig       `toml:"kalshi"`
	PolymarketUS PolymarketUSConfig `toml:"polymarket_us"`
	Engine       EngineConfig       `toml:"engine"`
	Mapping      MappingConfig      `toml:"mapping"`
	Postgres     PostgresConfig     `toml:"postgres"`
	Redis        RedisConfig        `toml:"redis"`
	S3           S3Config           `toml:"s3"`
	MarketData   MarketDataConfig   `toml:"market_data"`
	Server       ServerConfig       `toml:"server"`
	Alert        AlertConfig        `toml:"alert"`
	Mode         string             `toml:"mode"`
	LogLevel     string             `toml:"log_level"`
}

// KalshiConfig holds Kalshi exchange API credentials and endpoints.
type KalshiConfig struct {
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
	WsURL             string `toml:"ws_url"`
}

// PolymarketUSConfig holds Polymarket US API credentials and endpoints.
type PolymarketUSConfig struct {
	ApiKeyID       string `toml:"api_key_id"`
	PrivateKeyPath string `toml:"private_key_path"`
	BaseURL        string `toml:"base_url"`
	WsURL          string `toml:"ws_url"`
}

// EngineConfig holds detection and execution parameters.
type EngineConfig struct {
	ScanInterval    duration `toml:"scan_interval"`
	MinEdge         float64  `toml:"min_edge"`
	AllowDoubleSell bool     `toml:"allow_double_sell"`
	Execute         bool     `toml:"execute"`
	CallTimeout     duration `toml:"call_timeout"`
}

// MappingConfig points at the cross-venue instrument mapping file.
type MappingConfig struct {
	Path string `toml:"path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	TobTTL     duration `toml:"tob_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
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

// MarketDataConfig holds top-of-book recording parameters.
type MarketDataConfig struct {
	Enabled         bool     `toml:"enabled"`
	Dir             string   `toml:"dir"`
	ArchiveInterval duration `toml:"archive_interval"`
	ArchivePrefix   string   `toml:"archive_prefix"`
}

// ServerConfig holds the monitoring HTTP API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"` // requests per client IP per minute; 0 disables
}

// AlertConfig holds operator notification parameters. Events filters which
// alert kinds are delivered; an empty list delivers everything.
type AlertConfig struct {
	Enabled  bool           `toml:"enabled"`
	Events   []string       `toml:"events"`
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
}

// TelegramConfig holds Telegram bot credentials.
type TelegramConfig struct {
	Token  string `toml:"token"`
	ChatID string `toml:"chat_id"`
}

// DiscordConfig holds a Discord webhook target.
type DiscordConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
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
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			WsURL:   "wss://api.elections.kalshi.com/trade-api/ws/v2",
		},
		PolymarketUS: PolymarketUSConfig{
			BaseURL: "https://api.polymarket.us",
			WsURL:   "wss://api.polymarket.us",
		},
		Engine: EngineConfig{
			ScanInterval:    duration{time.Second},
			MinEdge:         0.02,
			AllowDoubleSell: false,
			Execute:         false,
			CallTimeout:     duration{5 * time.Second},
		},
		Mapping: MappingConfig{
			Path: "mapping.toml",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "crossarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			TobTTL:     duration{time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb-data",
			ForcePathStyle: true,
		},
		MarketData: MarketDataConfig{
			Enabled:         false,
			Dir:             "data/marketdata",
			ArchiveInterval: duration{time.Hour},
			ArchivePrefix:   "marketdata",
		},
		Server: ServerConfig{
			Enabled:   false,
			Port:      8080,
			RateLimit: 120,
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"arbitrage": true,
	"monitor":   true,
	"record":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: arbitrage, monitor, record)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venue credentials are required whenever the process talks to the
	// exchanges, which is every mode.
	if c.Kalshi.ApiKey == "" {
		errs = append(errs, "kalshi: api_key must not be empty")
	}
	if c.Kalshi.RsaPrivateKeyPath == "" {
		errs = append(errs, "kalshi: rsa_private_key_path must not be empty")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.WsURL == "" {
		errs = append(errs, "kalshi: ws_url must not be empty")
	}
	if c.PolymarketUS.ApiKeyID == "" {
		errs = append(errs, "polymarket_us: api_key_id must not be empty")
	}
	if c.PolymarketUS.PrivateKeyPath == "" {
		errs = append(errs, "polymarket_us: private_key_path must not be empty")
	}
	if c.PolymarketUS.BaseURL == "" {
		errs = append(errs, "polymarket_us: base_url must not be empty")
	}
	if c.PolymarketUS.WsURL == "" {
		errs = append(errs, "polymarket_us: ws_url must not be empty")
	}

	// Engine
	if c.Engine.ScanInterval.Duration <= 0 {
		errs = append(errs, "engine: scan_interval must be > 0")
	}
	if c.Engine.MinEdge < 0 || c.Engine.MinEdge >= 1 {
		errs = append(errs, fmt.Sprintf("engine: min_edge must be in [0, 1), got %g", c.Engine.MinEdge))
	}
	if c.Engine.Execute && c.Mode != "arbitrage" {
		errs = append(errs, fmt.Sprintf("engine: execute requires mode arbitrage, got %q", c.Mode))
	}

	// Mapping
	if c.Mapping.Path == "" {
		errs = append(errs, "mapping: path must not be empty")
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
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
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
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if !c.MarketData.Enabled {
			errs = append(errs, "s3: archiving requires market_data.enabled")
		}
	}

	// Market data
	if c.MarketData.Enabled {
		if c.MarketData.Dir == "" {
			errs = append(errs, "market_data: dir must not be empty")
		}
		if c.MarketData.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "market_data: archive_interval must be > 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	// Alert
	if c.Alert.Enabled {
		hasTelegram := c.Alert.Telegram.Token != "" && c.Alert.Telegram.ChatID != ""
		hasDiscord := c.Alert.Discord.WebhookURL != ""
		if !hasTelegram && !hasDiscord {
			errs = append(errs, "alert: enabled but no telegram or discord channel configured")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
