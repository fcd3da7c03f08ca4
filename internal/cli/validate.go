package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tbcsched/internal/job"
	"tbcsched/internal/sched"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the boot table without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sched.Load(flagConfig)
			if err != nil {
				return err
			}
			s, err := sched.Boot(cfg, job.Catalog(logger), sched.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("boot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d tasks, %d auto-started, %d ready)\n",
				flagConfig, s.Registry().Count(), s.AutoStart().Count(), s.Tracker().ReadyCount())
			return nil
		},
	}
}
