package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alanyoungcy/crossarb/internal/alert"
	s3blob "github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/book"
	"github.com/alanyoungcy/crossarb/internal/cache/redis"
	"github.com/alanyoungcy/crossarb/internal/config"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/engine"
	"github.com/alanyoungcy/crossarb/internal/gateway/kalshi"
	"github.com/alanyoungcy/crossarb/internal/gateway/polymarketus"
	"github.com/alanyoungcy/crossarb/internal/mapping"
	"github.com/alanyoungcy/crossarb/internal/marketdata"
	"github.com/alanyoungcy/crossarb/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Mapping  *mapping.Map
	Registry *book.Registry

	KalshiClient *kalshi.Client
	PolyClient   *polymarketus.Client
	Ports        map[domain.Venue]engine.ExecutionPort

	// KalshiTickers and PolySlugs are the instrument universes to subscribe
	// to, derived from the mapping.
	KalshiTickers []string
	PolySlugs     []string

	// Optional layers; nil when disabled in config.
	Recorder     *postgres.Recorder
	RedisClient  *redis.Client
	TobPublisher *redis.TopOfBookPublisher
	MarketData   *marketdata.Recorder
	Archiver     *s3blob.Archiver
	BlobReader   *s3blob.Reader
	Alerter      *alert.Notifier
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function that releases resources in
// reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Instrument mapping. A bad mapping means the process cannot know
	// its universe; fail hard. ---
	corr, err := mapping.Load(cfg.Mapping.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: mapping: %w", err)
	}
	deps.Mapping = corr

	specs := corr.Specs()
	deps.Registry = book.NewRegistry(specs, logger)
	for _, spec := range specs {
		switch spec.Venue {
		case domain.VenueKalshi:
			deps.KalshiTickers = append(deps.KalshiTickers, spec.ID)
		case domain.VenuePolymarketUS:
			deps.PolySlugs = append(deps.PolySlugs, spec.ID)
		}
	}

	// --- Kalshi gateway ---
	kc, err := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: kalshi client: %w", err)
	}
	pem, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: read kalshi key: %w", err)
	}
	if err := kc.SetRSAPrivateKey(pem); err != nil {
		return nil, nil, fmt.Errorf("wire: kalshi key: %w", err)
	}
	deps.KalshiClient = kc

	// --- Polymarket US gateway ---
	keyB64, err := os.ReadFile(cfg.PolymarketUS.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: read polymarket_us key: %w", err)
	}
	pc, err := polymarketus.NewClient(cfg.PolymarketUS.BaseURL, cfg.PolymarketUS.ApiKeyID, string(keyB64))
	if err != nil {
		return nil, nil, fmt.Errorf("wire: polymarket_us client: %w", err)
	}
	deps.PolyClient = pc

	deps.Ports = map[domain.Venue]engine.ExecutionPort{
		domain.VenueKalshi:       kalshi.NewPort(kc),
		domain.VenuePolymarketUS: polymarketus.NewPort(pc),
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Recorder = postgres.NewRecorder(pgClient.Pool())
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.RedisClient = redisClient
		deps.TobPublisher = redis.NewTopOfBookPublisher(redisClient, cfg.Redis.TobTTL.Duration)
	}

	// --- Operator alerts ---
	if cfg.Alert.Enabled {
		var senders []alert.Sender
		if cfg.Alert.Telegram.Token != "" && cfg.Alert.Telegram.ChatID != "" {
			senders = append(senders, alert.NewTelegramSender(cfg.Alert.Telegram.Token, cfg.Alert.Telegram.ChatID))
		}
		if cfg.Alert.Discord.WebhookURL != "" {
			senders = append(senders, alert.NewDiscordSender(cfg.Alert.Discord.WebhookURL))
		}
		deps.Alerter = alert.NewNotifier(senders, cfg.Alert.Events, logger)
	}

	// --- Market data recording ---
	if cfg.MarketData.Enabled {
		rec, err := marketdata.NewRecorder(cfg.MarketData.Dir, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: marketdata: %w", err)
		}
		closers = append(closers, func() { _ = rec.Close() })
		deps.MarketData = rec
	}

	// --- S3 archiver ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.MarketData,
			cfg.MarketData.ArchivePrefix,
			cfg.MarketData.ArchiveInterval.Duration,
			logger,
		)
		deps.BlobReader = s3blob.NewReader(s3Client)
	}

	return deps, cleanup, nil
}
