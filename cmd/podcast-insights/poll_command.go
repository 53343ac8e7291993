package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michaeldiestelberg/podcast-insights/internal/daemon"
	"github.com/michaeldiestelberg/podcast-insights/internal/feed"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Check all configured feeds for new episodes",
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
			results, err := poller.PollAll(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				name := result.Name
				if name == "" {
					name = result.URL
				}
				state := "updated"
				switch {
				case result.Err != nil:
					state = "error: " + result.Err.Error()
				case result.Unchanged:
					state = "unchanged"
				}
				rows = append(rows, []string{name, strconv.Itoa(result.NewEpisodes), state})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Feed", "New", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
