package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaeldiestelberg/podcast-insights/internal/daemon"
	"github.com/michaeldiestelberg/podcast-insights/internal/feed"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/workflow"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll and process feeds continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			lock, err := daemon.Acquire(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			poller := feed.NewPoller(cfg, store, nil, logger)
			manager := workflow.NewManager(cfg, store, logger)
			d, err := daemon.New(cfg, store, poller, manager, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return d.Run(runCtx)
		},
	}
}
