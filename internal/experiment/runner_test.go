package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/store"
)

type conditionWrite struct {
	dir       string
	summaries []game.Summary
}

type fakeWriter struct {
	writes []conditionWrite
	fail   string
}

func (w *fakeWriter) WriteCondition(ctx context.Context, dir string, cfg config.Configuration, summaries []game.Summary) error {
	if dir == w.fail {
		return errors.New("disk full")
	}
	w.writes = append(w.writes, conditionWrite{dir: dir, summaries: summaries})
	return nil
}

type fakeRecorder struct {
	started    int
	finished   int
	conditions map[string]error
	trials     map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{conditions: map[string]error{}, trials: map[string]int{}}
}

func (f *fakeRecorder) StartRun(ctx context.Context, experiment string) (string, error) {
	f.started++
	return "run-1", nil
}

func (f *fakeRecorder) RecordCondition(ctx context.Context, runID, dir string, cfg config.Configuration, condErr error) error {
	f.conditions[dir] = condErr
	return nil
}

func (f *fakeRecorder) RecordTrials(ctx context.Context, runID, dir string, summaries []game.Summary) error {
	f.trials[dir] = len(summaries)
	return nil
}

func (f *fakeRecorder) FinishRun(ctx context.Context, runID string) error {
	f.finished++
	return nil
}

func smallConfig(t *testing.T, trials int) config.Configuration {
	t.Helper()
	cfg, err := config.NewBuilder().
		WithTrials(trials).
		WithIterations(300, 40).
		WithRewards(1, 0.3).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return cfg
}

func TestRun_AllConditions(t *testing.T) {
	exp := FromConfigurations("exp", map[string]config.Configuration{
		"exp/b": smallConfig(t, 2),
		"exp/a": smallConfig(t, 3),
	})
	w := &fakeWriter{}
	rec := newFakeRecorder()
	r := NewRunner(game.NewRunner(nil, nil, nil), w, rec, nil, nil)

	result, err := r.Run(context.Background(), exp)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", result.RunID)
	}
	if len(result.Conditions) != 2 || result.Conditions[0].Dir != "exp/a" {
		t.Fatalf("Conditions = %+v, want exp/a then exp/b", result.Conditions)
	}
	if got := len(result.Conditions[0].Summaries); got != 3 {
		t.Errorf("exp/a summaries = %d, want 3", got)
	}
	for i, s := range result.Conditions[0].Summaries {
		if s.Trial != i {
			t.Errorf("summary %d has trial index %d", i, s.Trial)
		}
	}
	if len(w.writes) != 2 {
		t.Errorf("condition writes = %d, want 2", len(w.writes))
	}
	if rec.started != 1 || rec.finished != 1 {
		t.Errorf("run started %d times, finished %d times", rec.started, rec.finished)
	}
	if rec.trials["exp/b"] != 2 {
		t.Errorf("recorded exp/b trials = %d, want 2", rec.trials["exp/b"])
	}
}

func TestRun_InvalidConditionIsIsolated(t *testing.T) {
	bad := smallConfig(t, 1)
	bad.NumEvalIters = 0

	exp := FromConfigurations("exp", map[string]config.Configuration{
		"exp/bad":  bad,
		"exp/good": smallConfig(t, 1),
	})
	w := &fakeWriter{}
	rec := newFakeRecorder()
	r := NewRunner(game.NewRunner(nil, nil, nil), w, rec, nil, nil)

	result, err := r.Run(context.Background(), exp)
	if err == nil {
		t.Fatal("Run() should report the invalid condition")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].Dir != "exp/bad" {
		t.Fatalf("Failed() = %+v, want exp/bad only", failed)
	}
	if len(w.writes) != 1 || w.writes[0].dir != "exp/good" {
		t.Errorf("writes = %+v, want exp/good only", w.writes)
	}
	if rec.conditions["exp/bad"] == nil {
		t.Error("recorder should store the condition error")
	}
	if _, ok := rec.trials["exp/bad"]; ok {
		t.Error("no trials should be recorded for an invalid condition")
	}
}

func TestRun_WriteFailure(t *testing.T) {
	exp := FromConfigurations("exp", map[string]config.Configuration{
		"exp/a": smallConfig(t, 1),
		"exp/b": smallConfig(t, 1),
	})
	w := &fakeWriter{fail: "exp/a"}
	r := NewRunner(game.NewRunner(nil, nil, nil), w, nil, nil, nil)

	result, err := r.Run(context.Background(), exp)
	if err == nil {
		t.Fatal("Run() should report the write failure")
	}
	if len(result.Failed()) != 1 {
		t.Errorf("Failed() = %d conditions, want 1", len(result.Failed()))
	}
	if result.Conditions[1].Err != nil {
		t.Errorf("exp/b should succeed, got %v", result.Conditions[1].Err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exp := FromConfigurations("exp", map[string]config.Configuration{"exp/a": smallConfig(t, 1)})
	r := NewRunner(game.NewRunner(nil, nil, nil), &fakeWriter{}, nil, nil, nil)

	if _, err := r.Run(ctx, exp); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_WithStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	ix, err := store.OpenIndex(root)
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()
	arts := store.NewArtifacts(root)

	exp := FromConfigurations("exp1", map[string]config.Configuration{"exp1/a": smallConfig(t, 2)})
	r := NewRunner(game.NewRunner(arts, nil, nil), arts, ix, nil, nil)

	result, err := r.Run(ctx, exp)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"all_trials.csv", "params.yaml", "trial_0_eval.csv", "trial_1_sender2.arrow"} {
		if _, err := os.Stat(filepath.Join(root, "exp1", "a", name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	rows, err := ix.Trials(ctx, store.TrialFilter{RunID: result.RunID})
	if err != nil {
		t.Fatalf("Trials() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("indexed trials = %d, want 2", len(rows))
	}
}

func TestRun_NonFiniteConditionIsIsolatedWithStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	ix, err := store.OpenIndex(root)
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()
	arts := store.NewArtifacts(root)

	exp, err := config.ParseExperiment([]byte(`
name: exp
base:
  num_trials: 1
  num_preds: 2
  num_strengths: 2
  pos_reward: 1.0
  neg_reward: 0.3
  pred_cost: 0.0
  m2cost: 0.0
  strength_weights: [1.0, 2.0]
  num_iters: 200
  num_eval: 20
  s1pred: true
  correct_id: false
conditions:
  exp/a_bad:
    pos_reward: .inf
  exp/b_good: {}
`))
	if err != nil {
		t.Fatalf("ParseExperiment() error = %v", err)
	}
	r := NewRunner(game.NewRunner(arts, nil, nil), arts, ix, nil, nil)

	result, err := r.Run(ctx, exp)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("Run() error = %v, want ErrInvalidConfig", err)
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].Dir != "exp/a_bad" {
		t.Fatalf("Failed() = %+v, want exp/a_bad only", failed)
	}
	if _, err := os.Stat(filepath.Join(root, "exp", "b_good", "all_trials.csv")); err != nil {
		t.Errorf("good condition did not run: %v", err)
	}

	conds, err := ix.Conditions(ctx, result.RunID)
	if err != nil {
		t.Fatalf("Conditions() error = %v", err)
	}
	if len(conds) != 2 || !conds[0].Error.Valid || conds[1].Error.Valid {
		t.Errorf("indexed conditions = %+v, want a_bad failed and b_good ok", conds)
	}
}
