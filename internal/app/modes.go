package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/stakerise/internal/server"
	"github.com/alanyoungcy/stakerise/internal/server/handler"
	"github.com/alanyoungcy/stakerise/internal/server/ws"
	"github.com/alanyoungcy/stakerise/internal/service"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServerMode serves the HTTP API and the websocket hub.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// SyncMode runs the stake syncer and the activity archive job.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startSync(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything ServerMode and SyncMode run in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startSync(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// startSync adds the stake syncer and, when enabled, the archive job to g.
// The catalog is checked against the contract once before syncing starts;
// mismatches are logged and do not stop the process.
func (a *App) startSync(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	cfg := a.cfg.Sync

	mismatches, err := service.VerifyCatalog(ctx, deps.Catalog, deps.Chain)
	if err != nil {
		a.logger.WarnContext(ctx, "catalog verification failed", slog.String("error", err.Error()))
	}
	for _, m := range mismatches {
		a.logger.WarnContext(ctx, "catalog differs from contract", slog.String("detail", m))
	}

	syncer := service.NewStakeSyncer(
		deps.Chain,
		deps.StakeStore,
		deps.ActivityStore,
		deps.LockManager,
		deps.SignalBus,
		service.SyncerConfig{
			Interval:        cfg.Interval.Duration,
			LockTTL:         cfg.LockTTL.Duration,
			RetryMaxElapsed: cfg.RetryMaxElapsed.Duration,
			Wallets:         cfg.Wallets,
		},
		a.logger,
	)
	g.Go(func() error {
		return syncer.Run(ctx)
	})

	if cfg.ArchiveActivity && deps.Archiver != nil {
		job := service.NewArchiveJob(deps.Archiver, cfg.ArchiveInterval.Duration, a.logger)
		g.Go(func() error {
			return job.Run(ctx)
		})
	}
}

// startHTTPServer adds the websocket hub, the HTTP server and its shutdown
// watcher to g. Chain-backed routes are registered only when a chain client
// is wired.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled")
		return
	}

	var balances service.BalanceReader
	if deps.Chain != nil {
		balances = deps.Chain
	}
	projections := service.NewProjectionService(deps.Catalog, deps.ProjectionCache, balances, a.logger)
	rewards := service.NewRewardsService(deps.Catalog, deps.StakeStore, deps.ActivityStore, a.logger)
	statements := service.NewStatementService(
		rewards, deps.BlobWriter, deps.BlobReader, deps.ActivityStore, deps.SignalBus, a.logger,
	)

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.Checks, a.logger),
		Status:      handler.NewStatusHandler(a.cfg.Mode),
		Catalog:     handler.NewCatalogHandler(deps.Catalog),
		Projections: handler.NewProjectionHandler(projections, a.cfg.Projection.DefaultCompound, a.logger),
		Wallets:     handler.NewWalletHandler(rewards, a.logger),
		Statements:  handler.NewStatementHandler(statements, a.logger),
	}
	if deps.Chain != nil {
		handlers.Pool = handler.NewPoolHandler(
			service.NewPoolService(deps.Chain, deps.ProjectionCache, a.logger), a.logger,
		)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      time.Now().UTC(),
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
