package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/compsig/internal/classify"
	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/constants"
	"github.com/nvandessel/compsig/internal/experiment"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/store"
	"gonum.org/v1/gonum/floats"
)

// Runner orchestrates simulation experiments against a real artifact store
// and results index.
type Runner struct {
	t         *testing.T
	root      string
	artifacts *store.Artifacts
	index     *store.Index
}

// NewRunner creates a simulation runner with an isolated output root.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	root := t.TempDir()

	ix, err := store.OpenIndex(root)
	if err != nil {
		t.Fatalf("NewRunner: failed to open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	return &Runner{t: t, root: root, artifacts: store.NewArtifacts(root), index: ix}
}

// Root returns the runner's output root.
func (r *Runner) Root() string { return r.root }

// Index returns the runner's results index.
func (r *Runner) Index() *store.Index { return r.index }

// Run plays every trial of the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	if err := scenario.Config.Validate(); err != nil {
		r.t.Fatalf("Run(%s): %v", scenario.Name, err)
	}
	trials := scenario.Trials
	if len(trials) == 0 {
		trials = []int{0}
	}
	threshold := scenario.Threshold
	if threshold == 0 {
		threshold = constants.DefaultCommitThreshold
	}

	result := SimulationResult{Scenario: scenario.Name, Dir: scenario.Name, Artifacts: r.artifacts}
	for _, index := range trials {
		tr := r.runTrial(ctx, scenario, index)

		sender2, err := r.artifacts.ReadAgent(result.Dir, index, game.Sender2Name)
		if err != nil {
			r.t.Fatalf("Run(%s): trial %d: reading sender2: %v", scenario.Name, index, err)
		}
		tr.Nontrivial, err = classify.NontrivialScore(sender2, threshold)
		if err != nil {
			r.t.Fatalf("Run(%s): trial %d: classify: %v", scenario.Name, index, err)
		}
		result.Trials = append(result.Trials, tr)
	}
	return result
}

// runTrial trains one trial window by window, evaluates it, and persists it.
func (r *Runner) runTrial(ctx context.Context, scenario Scenario, index int) TrialResult {
	r.t.Helper()

	trial, err := game.NewTrial(scenario.Config, index)
	if err != nil {
		r.t.Fatalf("runTrial(%d): %v", index, err)
	}

	windows := max(scenario.Windows, 1)
	total := scenario.Config.NumTrainingIters
	tr := TrialResult{Index: index}

	played := 0
	for w := 0; w < windows; w++ {
		if scenario.BeforeWindow != nil {
			scenario.BeforeWindow(index, w, trial.Agents())
		}
		end := total * (w + 1) / windows
		correct := 0
		rounds := end - played
		for ; played < end; played++ {
			if trial.Play(true).Correct {
				correct++
			}
		}
		wr := WindowResult{Index: w, Rounds: rounds, MinWeight: minWeight(trial.Agents())}
		if rounds > 0 {
			wr.Correct = float64(correct) / float64(rounds)
		}
		tr.Windows = append(tr.Windows, wr)
	}

	before := trial.Agents().Clone()
	tr.Records = trial.Evaluate()
	tr.Frozen = before.Equal(trial.Agents())
	tr.Agents = trial.Agents()

	tr.Summary, err = game.Summarize(index, tr.Records)
	if err != nil {
		r.t.Fatalf("runTrial(%d): %v", index, err)
	}

	out := &game.Output{
		Index:   index,
		Space:   trial.Space(),
		Agents:  trial.Agents(),
		Records: tr.Records,
		Summary: tr.Summary,
	}
	if err := r.artifacts.WriteTrial(ctx, scenario.Name, out); err != nil {
		r.t.Fatalf("runTrial(%d): writing artifacts: %v", index, err)
	}
	return tr
}

// RunExperiment runs exp end to end through the experiment runner, writing
// artifacts and index rows under the runner's root.
func (r *Runner) RunExperiment(exp *config.Experiment) (*experiment.Result, error) {
	r.t.Helper()
	er := experiment.NewRunner(game.NewRunner(r.artifacts, nil, nil), r.artifacts, r.index, nil, nil)
	return er.Run(context.Background(), exp)
}

func minWeight(a *game.Agents) float64 {
	m := floats.Min(a.Sender1.Weights())
	m = min(m, floats.Min(a.Sender2.Weights()))
	return min(m, floats.Min(a.Receiver1.Weights()))
}
