package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/cache/redis"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/engine"
	"github.com/alanyoungcy/crossarb/internal/feed"
	"github.com/alanyoungcy/crossarb/internal/server"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/middleware"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

// ArbitrageMode runs the venue feeds and the scan engine with execution
// enabled per config.
func (a *App) ArbitrageMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting arbitrage mode",
		slog.Bool("execute", a.cfg.Engine.Execute),
		slog.Float64("min_edge", a.cfg.Engine.MinEdge))

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)
	a.startSidecars(ctx, g, deps)

	scanner := a.newScanner(deps)
	a.startServer(ctx, g, deps, scanner.State())
	g.Go(func() error { return scanner.Run(ctx) })

	err := g.Wait()
	a.logScanSummary(scanner)
	return err
}

// MonitorMode runs the feeds and the scanner with execution forced off;
// opportunities are logged and recorded only.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)
	a.startSidecars(ctx, g, deps)

	cfg := a.engineConfig()
	cfg.Execute = false
	scanner := engine.NewScanner(deps.Registry, deps.Mapping, deps.Ports, a.recorder(deps), cfg, a.logger)
	if deps.Alerter != nil {
		scanner.SetAlerter(deps.Alerter)
	}
	a.startServer(ctx, g, deps, scanner.State())
	g.Go(func() error { return scanner.Run(ctx) })

	err := g.Wait()
	a.logScanSummary(scanner)
	return err
}

// RecordMode runs the feeds and the market data pipeline without any
// detection at all.
func (a *App) RecordMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting record mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)
	a.startSidecars(ctx, g, deps)
	a.startServer(ctx, g, deps, nil)

	return g.Wait()
}

// startFeeds launches both websocket feeds on the group.
func (a *App) startFeeds(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	onTop := a.topOfBookFanout(deps)

	kalshiFeed := feed.NewKalshiFeed(
		a.cfg.Kalshi.WsURL, deps.KalshiTickers, deps.KalshiClient,
		deps.Registry, onTop, a.logger,
	)
	g.Go(func() error { return kalshiFeed.Run(ctx) })

	polyFeed := feed.NewPolymarketUSFeed(
		a.cfg.PolymarketUS.WsURL, deps.PolySlugs, deps.PolyClient,
		deps.Registry, onTop, a.logger,
	)
	g.Go(func() error { return polyFeed.Run(ctx) })
}

// startSidecars launches the optional archiver loop.
func (a *App) startSidecars(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver != nil {
		g.Go(func() error { return deps.Archiver.Run(ctx) })
	}
}

// startServer launches the monitoring HTTP API when enabled. state may be
// nil (record mode runs no scanner).
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, state *engine.ScanState) {
	if !a.cfg.Server.Enabled {
		return
	}

	var hub *ws.Hub
	if deps.RedisClient != nil {
		hub = ws.NewHub(deps.RedisClient, redis.TobChannel, a.cfg.Mode, a.logger)
		h := hub
		g.Go(func() error { return h.Run(ctx) })
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(),
		Status:        handler.NewStatusHandler(a.cfg.Mode, len(deps.Mapping.Pairs()), state),
		Opportunities: handler.NewOpportunityHandler(a.opportunityStore(deps)),
		Books:         handler.NewBookHandler(deps.Registry),
		Archives:      handler.NewArchiveHandler(a.archiveStore(deps), a.cfg.MarketData.ArchivePrefix),
	}

	var limiter middleware.RateLimiter
	if deps.RedisClient != nil {
		limiter = deps.RedisClient
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, limiter, hub, a.logger)

	g.Go(func() error {
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		return srv.Start()
	})
}

// topOfBookFanout returns the handler feeds invoke after a book changes. It
// pushes the new top of book to the market data recorder and the Redis
// publisher when those are enabled.
func (a *App) topOfBookFanout(deps *Dependencies) feed.TopOfBookHandler {
	if deps.MarketData == nil && deps.TobPublisher == nil {
		return nil
	}
	return func(instrumentID string) {
		b, ok := deps.Registry.Book(instrumentID)
		if !ok {
			return
		}
		tob := b.TopOfBook()

		if deps.MarketData != nil {
			venue := domain.Venue("")
			if inst, ok := deps.Registry.Instrument(instrumentID); ok {
				venue = inst.Venue
			}
			if err := deps.MarketData.Record(tob, venue); err != nil {
				a.logger.Warn("record top of book",
					slog.String("instrument", instrumentID),
					slog.String("error", err.Error()))
			}
		}

		if deps.TobPublisher != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := deps.TobPublisher.Publish(ctx, tob); err != nil {
				a.logger.Warn("publish top of book",
					slog.String("instrument", instrumentID),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (a *App) engineConfig() engine.Config {
	return engine.Config{
		ScanInterval:    a.cfg.Engine.ScanInterval.Duration,
		MinEdge:         decimal.NewFromFloat(a.cfg.Engine.MinEdge),
		AllowDoubleSell: a.cfg.Engine.AllowDoubleSell,
		Execute:         a.cfg.Engine.Execute,
		CallTimeout:     a.cfg.Engine.CallTimeout.Duration,
	}
}

func (a *App) newScanner(deps *Dependencies) *engine.Scanner {
	scanner := engine.NewScanner(deps.Registry, deps.Mapping, deps.Ports, a.recorder(deps), a.engineConfig(), a.logger)
	if deps.Alerter != nil {
		scanner.SetAlerter(deps.Alerter)
	}
	return scanner
}

// archiveStore converts the optional S3 reader into the handler interface,
// keeping the interface nil when archiving is disabled.
func (a *App) archiveStore(deps *Dependencies) handler.ArchiveStore {
	if deps.BlobReader == nil {
		return nil
	}
	return deps.BlobReader
}

// opportunityStore converts the optional concrete recorder into the handler
// interface, keeping the interface nil when persistence is disabled.
func (a *App) opportunityStore(deps *Dependencies) handler.OpportunityStore {
	if deps.Recorder == nil {
		return nil
	}
	return deps.Recorder
}

// recorder converts the optional concrete recorder into the engine interface,
// keeping the interface nil when persistence is disabled.
func (a *App) recorder(deps *Dependencies) engine.Recorder {
	if deps.Recorder == nil {
		return nil
	}
	return deps.Recorder
}

func (a *App) logScanSummary(scanner *engine.Scanner) {
	snap := scanner.State().Summary()
	a.logger.Info("scan summary",
		slog.Int64("orders", snap.OrderCount),
		slog.String("estimated_profit", snap.EstimatedProfit.String()),
		slog.Int("partial_failures", snap.PartialFailures))
}
