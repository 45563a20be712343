package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opinionterm/opiniond/internal/pipeline"
	"github.com/opinionterm/opiniond/internal/server"
	"github.com/opinionterm/opiniond/internal/server/handler"
	"github.com/opinionterm/opiniond/internal/server/ws"
	"github.com/opinionterm/opiniond/internal/service"
)

// ServeMode runs the API server: HTTP endpoints, the websocket hub, and the
// orderbook poller feeding live subscribers.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startAPIServer(ctx, g, deps)

	return g.Wait()
}

// RefreshMode runs the background pipeline only: the catalog refresher and,
// when blob storage is configured, the snapshot archiver.
func (a *App) RefreshMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting refresh mode")

	orch := a.newPipeline(deps)
	return orch.Run(ctx)
}

// FullMode runs the API server and the background pipeline together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startAPIServer(ctx, g, deps)

	orch := a.newPipeline(deps)
	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	return g.Wait()
}

// startAPIServer builds the services and handlers, registers the server
// goroutines on g, and arranges graceful shutdown on ctx cancellation.
func (a *App) startAPIServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	marketSvc := service.NewMarketService(
		deps.Upstream,
		deps.Enricher,
		deps.Catalog,
		deps.MarketCache,
		service.MarketServiceConfig{
			Status:          a.cfg.Opinion.Status,
			PageSize:        a.cfg.Opinion.PageSize,
			DetailScanPages: a.cfg.Opinion.DetailScanPages,
		},
		a.logger,
	)
	tokenSvc := service.NewTokenService(deps.Upstream, deps.BookCache, deps.PriceCache, a.logger)

	poller := service.NewBookPoller(tokenSvc, hub, a.cfg.Pipeline.PollInterval.Duration, a.logger)
	g.Go(func() error {
		err := poller.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.ApiKey,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Markets: handler.NewMarketHandler(marketSvc, a.logger),
			Tokens:  handler.NewTokenHandler(tokenSvc, a.logger),
			Proxy:   handler.NewProxyHandler(a.cfg.Opinion.BaseURL, a.cfg.Opinion.ApiKey, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// newPipeline assembles the refresh/archive orchestrator from the wired
// dependencies. The archiver is only attached when blob storage is up.
func (a *App) newPipeline(deps *Dependencies) *pipeline.Orchestrator {
	refresher := pipeline.NewRefresher(deps.Catalog, deps.MarketStore, a.logger)

	var archiver *pipeline.Archiver
	if deps.BlobWriter != nil {
		archiver = pipeline.NewArchiver(deps.Catalog, deps.BlobWriter, a.logger)
	}

	return pipeline.NewOrchestrator(
		refresher,
		archiver,
		a.cfg.Pipeline.RefreshInterval.Duration,
		a.cfg.Pipeline.ArchiveInterval.Duration,
		a.logger,
	)
}
