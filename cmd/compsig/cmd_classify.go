package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/nvandessel/compsig/internal/classify"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/store"
	"github.com/spf13/cobra"
)

// classification is one trial's classifier output.
type classification struct {
	Dir         string `json:"dir"`
	Trial       int    `json:"trial"`
	Score       int    `json:"score"`
	Conditioned []int  `json:"conditioned"`
}

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <dir> [trial]",
		Short: "Score saved Sender2 policies for nontrivial signaling",
		Long: `Score saved Sender2 policies for nontrivial signaling.

A state counts as conditioned when its second message depends on the
first message Sender2 received. The score is the number of such states.
Without a trial index every trial found in the directory is scored.

Examples:
  compsig classify exp1/s1pred-correct_id
  compsig classify exp1/s1pred-correct_id 2 --threshold 0.9`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if threshold == 0 {
				threshold = e.settings.Classifier.Threshold
			}

			arts := store.NewArtifacts(e.root)
			dir := args[0]

			var trials []int
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 0 {
					return fmt.Errorf("invalid trial index %q", args[1])
				}
				trials = []int{n}
			} else {
				trials, err = arts.Trials(dir)
				if err != nil {
					return err
				}
				if len(trials) == 0 {
					return fmt.Errorf("no trials found in %s", arts.Dir(dir))
				}
			}

			results := make([]classification, 0, len(trials))
			for _, n := range trials {
				sender2, err := arts.ReadAgent(dir, n, game.Sender2Name)
				if err != nil {
					return err
				}
				report, err := classify.Analyze(sender2, threshold)
				if err != nil {
					return err
				}
				c := classification{Dir: dir, Trial: n, Score: report.Score, Conditioned: []int{}}
				for id, ok := range report.Conditioned {
					if ok {
						c.Conditioned = append(c.Conditioned, id)
					}
				}
				results = append(results, c)
			}

			if e.json {
				return e.encodeJSON(results)
			}
			w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRIAL\tSCORE\tCONDITIONED STATES")
			for _, c := range results {
				fmt.Fprintf(w, "%d\t%d\t%v\n", c.Trial, c.Score, c.Conditioned)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64("threshold", 0, "Commit probability threshold (default from settings)")
	return cmd
}
