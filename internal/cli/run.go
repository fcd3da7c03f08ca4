package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tbcsched/internal/job"
	"tbcsched/internal/sched"
	"tbcsched/internal/trace"
)

func newRunCmd() *cobra.Command {
	var (
		passes int
		ticks  int64
		csvOut string
		dbOut  string
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the table and run the scheduler",
		Long: "Boot the table and run the scheduler. With --passes each step advances one tick " +
			"and runs one pass back to back, without waiting for the clock; otherwise one pass " +
			"runs per tick of the clock until the tick limit or Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sched.Load(flagConfig)
			if err != nil {
				return err
			}
			if ticks > 0 {
				cfg.OS.MaxTicks = ticks
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var sinks []sched.Sink
			if !quiet {
				sinks = append(sinks, trace.NewConsole(out))
			}
			if csvOut != "" {
				c, err := trace.NewCSV(csvOut)
				if err != nil {
					return fmt.Errorf("csv trace: %w", err)
				}
				defer c.Close()
				sinks = append(sinks, c)
			}
			if dbOut != "" {
				db, err := trace.OpenSQLite(ctx, dbOut, logger)
				if err != nil {
					return err
				}
				defer db.Close()
				runID, err := db.BeginRun(ctx, flagConfig)
				if err != nil {
					return err
				}
				logger.Info("recording trace", "db", dbOut, "run", runID)
				sinks = append(sinks, db)
			}

			s, err := sched.Boot(cfg, job.Catalog(logger), sched.Options{
				Hooks:  logHooks(),
				Sinks:  sinks,
				Logger: logger,
			})
			if err != nil {
				return fmt.Errorf("boot: %w", err)
			}

			if passes > 0 {
				for i := 0; i < passes && err == nil; i++ {
					_, err = s.Step(ctx)
				}
				s.Shutdown()
			} else {
				err = s.Run(ctx)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			printSummary(out, s)
			return nil
		},
	}
	cmd.Flags().IntVar(&passes, "passes", 0, "Run this many tick-and-pass steps without waiting for the clock")
	cmd.Flags().Int64Var(&ticks, "ticks", 0, "Stop after this many ticks (overrides os.max_ticks)")
	cmd.Flags().StringVar(&csvOut, "csv", "", "Write the event trace to a CSV file")
	cmd.Flags().StringVar(&dbOut, "db", "", "Record the event trace in a SQLite database")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print events")
	return cmd
}

// logHooks returns hooks that only log; the boot table decides which run.
func logHooks() sched.Hooks {
	return sched.Hooks{
		Startup:  func() { logger.Info("startup hook") },
		Shutdown: func() { logger.Info("shutdown hook") },
		PreTask:  func(id sched.TaskID) { logger.Debug("pre-task hook", "task", id) },
		PostTask: func(id sched.TaskID) { logger.Debug("post-task hook", "task", id) },
		Error:    func(err error) { logger.Warn("error hook", "error", err) },
	}
}

func printSummary(w io.Writer, s *sched.Scheduler) {
	fmt.Fprintf(w, "\n%d ticks, %d passes\n", s.Ticks(), s.Passes())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRIO\tSTATE\tACTIVATIONS\tDISPATCHES\tFAULT")
	for _, t := range s.Tracker().Snapshot() {
		fault := ""
		if t.Faulted {
			fault = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\t%s\n",
			t.ID, t.Name, t.Priority, t.State, t.Activations, t.Dispatches, fault)
	}
	tw.Flush()
}
