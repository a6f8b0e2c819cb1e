package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/zoning-audit/internal/export"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List audit runs recorded in a SQLite results file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("db")
		if path == "" {
			path = cfg.Export.SQLite
		}
		if path == "" {
			return eris.New("runs: no results file; pass --db or set export.sqlite")
		}

		store, err := export.NewSQLite(path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		runs, err := store.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

func formatRuns(out io.Writer, runs []export.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tAGGREGATE\tCLASSIFIED\tVIOLATING")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Aggregate,
			r.Classified,
			r.Violating,
		)
	}
	w.Flush() //nolint:errcheck
}

func init() {
	runsCmd.Flags().String("db", "", "SQLite results file (defaults to export.sqlite config)")
	rootCmd.AddCommand(runsCmd)
}
