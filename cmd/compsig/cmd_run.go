package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/experiment"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <experiment.yaml>",
		Short: "Run every condition of an experiment file",
		Long: `Run every condition of an experiment file.

Each condition's trials are written under <root>/<condition dir>:
trial_<i>_eval.csv, trial_<i>_{sender1,sender2,receiver1}.arrow,
all_trials.csv, and params.yaml. Results are also recorded in the
index at <root>/.compsig/results.db.

A condition that fails validation or storage is reported and skipped;
the other conditions still run.

Examples:
  compsig run experiments/exp1.yaml
  compsig run experiments/exp1.yaml --root results --log-level debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			exp, err := config.LoadExperiment(args[0])
			if err != nil {
				return err
			}
			return runExperiment(cmd, e, exp)
		},
	}
}

// runExperiment runs exp under the env's root and reports the outcome.
func runExperiment(cmd *cobra.Command, e *env, exp *config.Experiment) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	ix, err := store.OpenIndex(e.root)
	if err != nil {
		return err
	}
	defer ix.Close()

	arts := store.NewArtifacts(e.root)
	runner := experiment.NewRunner(game.NewRunner(arts, e.logger, e.trace), arts, ix, e.logger, e.trace)

	result, runErr := runner.Run(ctx, exp)
	if result == nil {
		return runErr
	}

	if e.json {
		if err := e.encodeJSON(result); err != nil {
			return err
		}
	} else {
		printResult(e, result)
	}
	if runErr != nil {
		return fmt.Errorf("%d of %d conditions failed: %w", len(result.Failed()), len(exp.Conditions), runErr)
	}
	return nil
}

func printResult(e *env, result *experiment.Result) {
	fmt.Fprintf(e.out, "Experiment %s (run %s)\n\n", result.Experiment, result.RunID)
	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONDITION\tTRIAL\tCORRECT\tREWARD")
	for _, c := range result.Conditions {
		if c.Err != nil {
			fmt.Fprintf(w, "%s\t-\tFAILED\t%v\n", c.Dir, c.Err)
			continue
		}
		for _, s := range c.Summaries {
			fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\n", c.Dir, s.Trial, s.Correct, s.Reward)
		}
	}
	w.Flush()
}
