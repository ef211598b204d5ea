package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"kiln/internal/catalog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent bake batches from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.CatalogDatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.RecentBatches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No batches recorded yet.")
				return nil
			}

			headers := []string{"ID", "Started", "Duration", "State", "Tasks", "Failed", "Reason"}
			var rows [][]string
			for _, rec := range records {
				duration := ""
				if !rec.FinishedAt.IsZero() {
					duration = rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					strconv.FormatInt(rec.ID, 10),
					rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
					duration,
					rec.State,
					strconv.Itoa(rec.Total),
					strconv.Itoa(rec.Failed),
					rec.Reason,
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{
				alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft,
			}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to show")
	return cmd
}
