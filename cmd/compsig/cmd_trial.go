package main

import (
	"fmt"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/experiment"
	"github.com/spf13/cobra"
)

func newTrialCmd() *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Run one condition configured from flags",
		Long: `Run one condition configured from flags instead of an experiment file.

Examples:
  compsig trial --dir quick --trials 3 --iters 5000
  compsig trial --dir exp/full --s1pred=false --correct-id --neg-reward 0.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := trialConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				return fmt.Errorf("--dir is required")
			}

			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			exp := experiment.FromConfigurations(dir, map[string]config.Configuration{dir: cfg})
			return runExperiment(cmd, e, exp)
		},
	}

	cmd.Flags().String("dir", "", "Output directory for the condition, relative to the root")
	cmd.Flags().Int("trials", defaults.NumTrials, "Number of trials")
	cmd.Flags().Int("preds", defaults.NumPredicates, "Number of predicates")
	cmd.Flags().Int("strengths", defaults.NumStrengths, "Number of strength levels per predicate")
	cmd.Flags().Float64Slice("weights", defaults.StrengthWeights, "Sampling weight per strength level")
	cmd.Flags().Float64("pos-reward", defaults.PositiveReward, "Reward for a correct guess")
	cmd.Flags().Float64("neg-reward", defaults.NegativeReward, "Penalty for a wrong guess")
	cmd.Flags().Float64("pred-cost", defaults.PredicateCost, "Predicate cost (recorded, not applied)")
	cmd.Flags().Float64("m2cost", defaults.SecondMessageCost, "Cost of sending the costly second message")
	cmd.Flags().Int("costly-msg", defaults.CostlyMessage, "Index of the costly second message")
	cmd.Flags().Int("iters", defaults.NumTrainingIters, "Training rounds per trial")
	cmd.Flags().Int("eval", defaults.NumEvalIters, "Evaluation rounds per trial")
	cmd.Flags().Bool("s1pred", defaults.Sender1SeesPredicate, "Sender1 sees only the active predicate")
	cmd.Flags().Bool("correct-id", defaults.CorrectID, "Require the exact state to be guessed")
	cmd.Flags().Uint64("seed", defaults.Seed, "Base random seed")

	return cmd
}

// trialConfigFromFlags builds a validated Configuration from the trial flags.
func trialConfigFromFlags(cmd *cobra.Command) (config.Configuration, error) {
	f := cmd.Flags()
	trials, _ := f.GetInt("trials")
	preds, _ := f.GetInt("preds")
	strengths, _ := f.GetInt("strengths")
	weights, _ := f.GetFloat64Slice("weights")
	pos, _ := f.GetFloat64("pos-reward")
	neg, _ := f.GetFloat64("neg-reward")
	predCost, _ := f.GetFloat64("pred-cost")
	m2cost, _ := f.GetFloat64("m2cost")
	costly, _ := f.GetInt("costly-msg")
	iters, _ := f.GetInt("iters")
	eval, _ := f.GetInt("eval")
	s1pred, _ := f.GetBool("s1pred")
	correctID, _ := f.GetBool("correct-id")
	seed, _ := f.GetUint64("seed")

	return config.NewBuilder().
		WithTrials(trials).
		WithStateSpace(preds, strengths).
		WithStrengthWeights(weights...).
		WithRewards(pos, neg).
		WithCosts(predCost, m2cost).
		WithCostlyMessage(costly).
		WithIterations(iters, eval).
		WithSender1SeesPredicate(s1pred).
		WithCorrectID(correctID).
		WithSeed(seed).
		Build()
}
