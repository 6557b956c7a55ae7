package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"discdrive/internal/api"
	"discdrive/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List discs seen by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]api.HistoryRecord, 0, len(records))
				for _, rec := range records {
					out = append(out, api.FromRecord(rec))
				}
				return writeJSON(cmd, out)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No discs recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				view := api.FromRecord(rec)
				removed := view.RemovedAt
				if rec.Present() {
					removed = "present"
				}
				rows = append(rows, []string{
					view.InsertedAt,
					removed,
					rec.Device,
					mediaLabel(rec.Media),
					strconv.FormatUint(uint64(rec.SectorCount), 10),
					strconv.Itoa(rec.Tracks),
					shortFingerprint(rec.Fingerprint),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Inserted", "Removed", "Device", "Media", "Sectors", "Tracks", "Fingerprint"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
