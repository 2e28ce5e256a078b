package main

import (
	"fmt"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings and validate experiment files",
		Long: `Inspect settings and validate experiment files.

Settings are read from ~/.compsig/config.yaml and the COMPSIG_ROOT,
COMPSIG_LOG_LEVEL, and COMPSIG_THRESHOLD environment variables.

Examples:
  compsig config show
  compsig config validate experiments/exp1.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if e.json {
				return e.encodeJSON(e.settings)
			}
			fmt.Fprintln(e.out, "Settings (~/.compsig/config.yaml):")
			fmt.Fprintln(e.out)
			fmt.Fprintf(e.out, "  root:                 %s\n", e.settings.Root)
			fmt.Fprintf(e.out, "  logging.level:        %s\n", valueOrDefault(e.settings.Logging.Level, "info"))
			fmt.Fprintf(e.out, "  classifier.threshold: %g\n", e.settings.Classifier.Threshold)
			return nil
		},
	}
}

// conditionReport is the validation outcome of one condition.
type conditionReport struct {
	Dir       string `json:"dir"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
	NumStates int    `json:"num_states,omitempty"`
	Hash      string `json:"hash,omitempty"`
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <experiment.yaml>",
		Short: "Validate every condition of an experiment file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			e := &env{json: jsonOut, out: cmd.OutOrStdout()}

			exp, err := config.LoadExperiment(args[0])
			if err != nil {
				return err
			}

			reports := make([]conditionReport, 0, len(exp.Conditions))
			invalid := 0
			for _, c := range exp.Conditions {
				r := conditionReport{Dir: c.Dir, Valid: c.Err == nil}
				if c.Err != nil {
					r.Error = c.Err.Error()
					invalid++
				} else if hash, err := c.Config.Hash(); err != nil {
					r.Valid = false
					r.Error = err.Error()
					invalid++
				} else {
					r.NumStates = c.Config.NumStates()
					r.Hash = hash
				}
				reports = append(reports, r)
			}

			if e.json {
				if err := e.encodeJSON(map[string]any{"name": exp.Name, "conditions": reports}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(e.out, "Experiment %s: %d conditions\n", exp.Name, len(reports))
				for _, r := range reports {
					if r.Valid {
						fmt.Fprintf(e.out, "  ok    %s (%d states, %s)\n", r.Dir, r.NumStates, r.Hash[:12])
					} else {
						fmt.Fprintf(e.out, "  FAIL  %s: %s\n", r.Dir, r.Error)
					}
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d conditions are invalid", invalid, len(reports))
			}
			return nil
		},
	}
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
