package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"OpenCodeWeb/internal/telemetry"

	"github.com/spf13/cobra"
)

func newJournalCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent proxied requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			journal, err := telemetry.InitDB(cfg.DBPath())
			if err != nil {
				return err
			}
			defer journal.Close()

			entries, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func printEntries(out io.Writer, entries []telemetry.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No requests recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tSESSION\tSTATUS\tDURATION\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Action,
			e.SessionID,
			e.Status,
			e.Duration.Round(time.Millisecond),
			e.Error,
		)
	}
	w.Flush()
}
