package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaeldiestelberg/podcast-insights/internal/daemon"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/selection"
	"github.com/michaeldiestelberg/podcast-insights/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var feedFlag string
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "process [selection]",
		Short: "Run the pipeline over pending episodes of a feed",
		Long: `Process drives a feed's pending episodes through download, transcription,
and insight extraction. An optional selection expression limits the run to
specific rows of the episodes listing: "3", "1,4,5", "2-6", or "all".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			mode, err := workflow.ParseMode(modeFlag)
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

			feedRow, err := resolveFeed(cmd, cfg, store, feedFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var episodeIDs []int64
			if len(args) == 1 {
				episodeIDs, err = resolveSelection(cmd.Context(), store, feedRow.ID, args[0])
				if err != nil {
					return err
				}
				if len(episodeIDs) == 0 {
					fmt.Fprintf(out, "No episodes for %s\n", feedRow.Name)
					return nil
				}
			} else {
				pending, err := store.PendingEpisodes(cmd.Context(), feedRow.ID, mode.Terminal())
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintf(out, "No pending episodes for %s\n", feedRow.Name)
					return nil
				}
			}

			manager := workflow.NewManager(cfg, store, logger)
			run, err := manager.Process(cmd.Context(), workflow.ProcessRequest{
				FeedID:     feedRow.ID,
				EpisodeIDs: episodeIDs,
				Mode:       mode,
			})
			if err != nil {
				return err
			}

			for event := range run.Events {
				renderEvent(out, event)
			}
			summary, err := run.Wait()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nProcessed %d, skipped %d, failed %d in %s\n",
				summary.Processed, summary.Skipped, summary.Failed,
				summary.Duration.Round(summaryRounding))
			if summary.Failed > 0 {
				return fmt.Errorf("%d episode(s) failed", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&feedFlag, "feed", "f", "", "Feed to process (1-based config index or URL)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "full", "How far to process: full, transcribe-only, or download-only")
	return cmd
}

// resolveSelection maps a selection expression onto episode IDs. Indices
// refer to rows of the newest-first listing the episodes command displays,
// so the full listing is used here, not just pending work; episodes that
// turn out to have nothing left to do are reported as skipped by the run.
func resolveSelection(ctx context.Context, store *ledger.Store, feedID int64, expr string) ([]int64, error) {
	total, err := store.EpisodeCount(ctx, feedID)
	if err != nil {
		return nil, err
	}
	episodes, err := store.EpisodesByFeed(ctx, feedID, 0, total)
	if err != nil {
		return nil, err
	}
	displayed := make([]int64, len(episodes))
	for i, ep := range episodes {
		displayed[i] = ep.ID
	}
	return selection.Resolve(expr, displayed)
}
