package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator coordinates the background jobs: catalog refresh and snapshot
// archival.
type Orchestrator struct {
	refresher       *Refresher
	archiver        *Archiver
	refreshInterval time.Duration
	archiveInterval time.Duration
	logger          *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. The archiver may be nil when no
// blob storage is configured; its loop is then simply not started.
func NewOrchestrator(
	refresher *Refresher,
	archiver *Archiver,
	refreshInterval time.Duration,
	archiveInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		refresher:       refresher,
		archiver:        archiver,
		refreshInterval: refreshInterval,
		archiveInterval: archiveInterval,
		logger:          logger,
	}
}

// Run starts the job loops as concurrent goroutines using an errgroup. Each
// loop respects ctx cancellation; a non-context error from any loop cancels
// the rest and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("refresh_interval", o.refreshInterval),
		slog.Duration("archive_interval", o.archiveInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.logger.Info("starting catalog refresh loop")
		err := o.refresher.RunLoop(ctx, o.refreshInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("refresher: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.Info("starting catalog archive loop")
			err := o.archiver.RunLoop(ctx, o.archiveInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
