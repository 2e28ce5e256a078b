package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/nvandessel/compsig/internal/analysis"
	"github.com/nvandessel/compsig/internal/store"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score trials and write descriptive statistics per condition",
		Long: `Join each trial summary with its condition's configuration, score every
trial's Sender2 policy, and summarize correct, reward, and nontrivial per
condition and (s1pred, correct_id) group: count, mean, std, min, max, and
the 95% confidence half-width 1.96*std/sqrt(count).

The table is written to <root>/descriptives.csv.

Examples:
  compsig analyze                  # latest run
  compsig analyze --run <run-id>
  compsig analyze --dir exp1/s1pred-correct_id --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := cmd.Context()

			ix, err := store.OpenIndex(e.root)
			if err != nil {
				return err
			}
			defer ix.Close()

			runID, _ := cmd.Flags().GetString("run")
			dir, _ := cmd.Flags().GetString("dir")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if threshold == 0 {
				threshold = e.settings.Classifier.Threshold
			}

			if runID == "" {
				run, err := ix.LatestRun(ctx)
				if errors.Is(err, store.ErrNoRuns) {
					return fmt.Errorf("no runs recorded under %s; run an experiment first", e.root)
				}
				if err != nil {
					return err
				}
				runID = run.ID
			}

			rows, err := analysis.Gather(ctx, ix, store.TrialFilter{RunID: runID, Dir: dir})
			if err != nil {
				return err
			}
			annotator := analysis.NewAnnotator(store.NewArtifacts(e.root), ix, threshold, e.logger)
			if err := annotator.Annotate(ctx, rows); err != nil {
				if errors.Is(err, analysis.ErrSuperseded) {
					return fmt.Errorf("%w; analyze the latest run for that directory instead", err)
				}
				return err
			}

			groups := analysis.Describe(rows)
			path, err := analysis.WriteDescriptivesFile(e.root, groups)
			if err != nil {
				return err
			}
			e.logger.Info("descriptives written", "path", path, "groups", len(groups), "trials", len(rows))

			if e.json {
				return e.encodeJSON(map[string]any{
					"run_id": runID,
					"trials": len(rows),
					"groups": groups,
					"path":   path,
				})
			}
			printGroups(e, groups)
			return nil
		},
	}

	cmd.Flags().String("run", "", "Run id to analyze (default: latest)")
	cmd.Flags().String("dir", "", "Restrict to one condition directory")
	cmd.Flags().Float64("threshold", 0, "Classifier commit threshold (default from settings)")
	return cmd
}

func printGroups(e *env, groups []analysis.Group) {
	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONDITION\tS1PRED\tCORRECT_ID\tMEASURE\tN\tMEAN\tSTD\tCI")
	for _, g := range groups {
		names := make([]string, 0, len(g.Measures))
		for name := range g.Measures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := g.Measures[name]
			fmt.Fprintf(w, "%s\t%v\t%v\t%s\t%d\t%.4f\t%.4f\t%.4f\n",
				g.Dir, g.S1Pred, g.CorrectID, name, s.Count, s.Mean, s.Std, s.CI)
		}
	}
	w.Flush()
}
