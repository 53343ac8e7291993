package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show feed and episode pipeline status",
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

			stats, err := store.FeedsWithStats(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := store.CountsByStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				fmt.Fprintln(out, "No feeds in the ledger yet; run `podcast-insights poll` first")
				return nil
			}

			rows := make([][]string, 0, len(stats))
			for _, fs := range stats {
				checked := "never"
				if !fs.LastCheckedAt.IsZero() {
					checked = fs.LastCheckedAt.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					fs.Name,
					strconv.Itoa(fs.TotalEpisodes),
					strconv.Itoa(fs.DoneEpisodes),
					strconv.Itoa(fs.FailedRecently),
					checked,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Feed", "Episodes", "Done", "Failing", "Last Checked"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))

			fmt.Fprintln(out)
			for _, status := range ledger.AllStatuses() {
				if count := counts[status]; count > 0 {
					fmt.Fprintf(out, "%-13s %d\n", status, count)
				}
			}
			fmt.Fprintf(out, "\nLedger: %s\n", store.Path())
			return nil
		},
	}
}
