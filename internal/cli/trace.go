package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tbcsched/internal/trace"
)

func newTraceCmd() *cobra.Command {
	var (
		dbPath string
		runID  string
	)
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List recorded runs, or the events of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := trace.OpenSQLite(ctx, dbPath, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if runID == "" {
				runs, err := db.Runs(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "RUN\tTABLE\tSTARTED\tEVENTS")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Label, r.StartedAt.Format(time.RFC3339), r.Events)
				}
				return nil
			}

			rows, err := db.Events(ctx, runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "SEQ\tTICK\tPASS\tEVENT\tTASK\tTRANSITION\tERROR")
			for _, r := range rows {
				task, transition := "", ""
				if r.TaskID != nil {
					task = fmt.Sprintf("%d %s", *r.TaskID, r.Task)
					transition = r.From + " -> " + r.To
				}
				fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\t%s\n", r.Seq, r.Tick, r.Pass, r.Kind, task, transition, r.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "tbcsched.db", "SQLite trace database")
	cmd.Flags().StringVar(&runID, "run", "", "Show the events of this run")
	return cmd
}
