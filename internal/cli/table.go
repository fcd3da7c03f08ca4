package cli

import (
	"fmt"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"tbcsched/internal/sched"
)

func newTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the normalised boot table with its derived counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sched.Load(flagConfig)
			if err != nil {
				return err
			}
			nTasks, nAuto := len(cfg.Tasks), len(cfg.AutoStart)
			cfg.TaskCount = &nTasks
			cfg.AutoStartCount = &nAuto
			for i := range cfg.Tasks {
				st, _ := sched.ParseState(cfg.Tasks[i].State)
				cfg.Tasks[i].State = st.String()
				if cfg.Tasks[i].Entry == "" {
					cfg.Tasks[i].Entry = cfg.Tasks[i].Name
				}
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal table: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
