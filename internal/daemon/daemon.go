package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/feed"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/workflow"
)

// Daemon runs the poll-then-process cycle on an interval until its context is
// cancelled. The instance lock must be held by the caller for the whole run.
type Daemon struct {
	cfg     *config.Config
	store   *ledger.Store
	poller  *feed.Poller
	manager *workflow.Manager
	logger  *slog.Logger
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, poller *feed.Poller, manager *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || poller == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, poller, and workflow manager")
	}
	return &Daemon{
		cfg:     cfg,
		store:   store,
		poller:  poller,
		manager: manager,
		logger:  logging.NewComponentLogger(logger, "daemon"),
	}, nil
}

// Run executes poll-and-process cycles until ctx is cancelled. Cancellation
// between cycles returns immediately; cancellation mid-cycle finishes the
// episode transition in flight first.
func (d *Daemon) Run(ctx context.Context) error {
	interval := time.Duration(d.cfg.Runtime.PollIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	d.logger.Info("watch started", logging.Duration("interval", interval))
	for {
		if err := d.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				d.logger.Info("watch stopped")
				return nil
			}
			d.logger.Error("cycle failed", logging.Error(err))
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			d.logger.Info("watch stopped")
			return nil
		}
	}
}

// Cycle performs one poll across all feeds followed by one full processing
// run per feed with pending work.
func (d *Daemon) Cycle(ctx context.Context) error {
	results, err := d.poller.PollAll(ctx)
	if err != nil {
		return err
	}

	feeds := make(map[int64]struct{}, len(results))
	for _, result := range results {
		if result.Err == nil && result.FeedID != 0 {
			feeds[result.FeedID] = struct{}{}
		}
	}

	for feedID := range feeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.processFeed(ctx, feedID); err != nil {
			d.logger.Error("feed processing failed",
				logging.Int64("feed_id", feedID),
				logging.Error(err))
		}
	}
	return ctx.Err()
}

func (d *Daemon) processFeed(ctx context.Context, feedID int64) error {
	pending, err := d.store.PendingEpisodes(ctx, feedID, ledger.StatusDone)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	run, err := d.manager.Process(ctx, workflow.ProcessRequest{
		FeedID: feedID,
		Mode:   workflow.ModeFull,
	})
	if err != nil {
		return err
	}
	for range run.Events {
		// The manager logs per-stage detail; the daemon only needs the
		// channel drained so the run can progress.
	}
	_, err = run.Wait()
	return err
}
