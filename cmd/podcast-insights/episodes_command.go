package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	var feedFlag string
	var offset int
	var limit int

	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "List a feed's episodes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			feedRow, err := resolveFeed(cmd, cfg, store, feedFlag)
			if err != nil {
				return err
			}

			episodes, err := store.EpisodesByFeed(cmd.Context(), feedRow.ID, offset, limit)
			if err != nil {
				return err
			}
			total, err := store.EpisodeCount(cmd.Context(), feedRow.ID)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(episodes))
			for i, ep := range episodes {
				date := ""
				if !ep.PubDate.IsZero() {
					date = ep.PubDate.Format("2006-01-02")
				}
				rows = append(rows, []string{
					strconv.Itoa(offset + i + 1),
					date,
					ep.Title,
					string(ep.Status),
					artifactSize(ep.AudioPath),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d episodes)\n", feedRow.Name, total)
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Date", "Title", "Status", "Audio"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&feedFlag, "feed", "f", "", "Feed to list (1-based config index or URL)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of episodes to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of episodes to show")
	return cmd
}

func artifactSize(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "-"
	}
	return humanize.IBytes(uint64(info.Size()))
}
