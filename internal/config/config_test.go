package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/compsig/internal/constants"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Root != "." {
		t.Errorf("expected Root '.', got '%s'", s.Root)
	}
	if s.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", s.Logging.Level)
	}
	if s.Classifier.Threshold != constants.DefaultCommitThreshold {
		t.Errorf("expected Threshold %v, got %v", constants.DefaultCommitThreshold, s.Classifier.Threshold)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
root: /tmp/results
logging:
  level: debug
classifier:
  threshold: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	s, err := LoadSettingsFromFile(path)
	if err != nil {
		t.Fatalf("LoadSettingsFromFile failed: %v", err)
	}
	if s.Root != "/tmp/results" {
		t.Errorf("Root = %q, want /tmp/results", s.Root)
	}
	if s.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", s.Logging.Level)
	}
	if s.Classifier.Threshold != 0.9 {
		t.Errorf("Threshold = %v, want 0.9", s.Classifier.Threshold)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COMPSIG_ROOT", "/data/out")
	t.Setenv("COMPSIG_LOG_LEVEL", "trace")
	t.Setenv("COMPSIG_THRESHOLD", "0.6")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Root != "/data/out" {
		t.Errorf("Root = %q, want /data/out", s.Root)
	}
	if s.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %q, want trace", s.Logging.Level)
	}
	if s.Classifier.Threshold != 0.6 {
		t.Errorf("Threshold = %v, want 0.6", s.Classifier.Threshold)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"threshold zero", func(s *Settings) { s.Classifier.Threshold = 0 }, true},
		{"threshold one", func(s *Settings) { s.Classifier.Threshold = 1 }, true},
		{"bad level", func(s *Settings) { s.Logging.Level = "verbose" }, true},
		{"empty level", func(s *Settings) { s.Logging.Level = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Configuration)
		wantErr string
	}{
		{"defaults", func(c *Configuration) {}, ""},
		{"zero eval rounds", func(c *Configuration) { c.NumEvalIters = 0 }, "num_eval"},
		{"negative training", func(c *Configuration) { c.NumTrainingIters = -1 }, "num_iters"},
		{"zero training ok", func(c *Configuration) { c.NumTrainingIters = 0 }, ""},
		{"weights mismatch", func(c *Configuration) { c.StrengthWeights = []float64{1} }, "strength_weights"},
		{"zero weights", func(c *Configuration) { c.StrengthWeights = []float64{0, 0} }, "positive sum"},
		{"negative costly message", func(c *Configuration) { c.CostlyMessage = -1 }, "costly_msg"},
		{"costly message never sent", func(c *Configuration) { c.CostlyMessage = 2 }, ""},
		{"single strength with default costly message", func(c *Configuration) {
			c.NumStrengths = 1
			c.StrengthWeights = []float64{1}
		}, ""},
		{"infinite pos_reward", func(c *Configuration) { c.PositiveReward = math.Inf(1) }, "pos_reward must be finite"},
		{"nan neg_reward", func(c *Configuration) { c.NegativeReward = math.NaN() }, "neg_reward must be finite"},
		{"infinite pred_cost", func(c *Configuration) { c.PredicateCost = math.Inf(-1) }, "pred_cost must be finite"},
		{"nan m2cost", func(c *Configuration) { c.SecondMessageCost = math.NaN() }, "m2cost must be finite"},
		{"nan strength weight", func(c *Configuration) { c.StrengthWeights = []float64{math.NaN(), 1} }, "strength_weights[0] must be finite"},
		{"infinite strength weight", func(c *Configuration) { c.StrengthWeights = []float64{1, math.Inf(1)} }, "strength_weights[1] must be finite"},
		{"no trials", func(c *Configuration) { c.NumTrials = 0 }, "num_trials"},
		{"no predicates", func(c *Configuration) { c.NumPredicates = 0 }, "num_preds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNumStates(t *testing.T) {
	cfg := Default()
	cfg.NumPredicates = 3
	cfg.NumStrengths = 2
	if got := cfg.NumStates(); got != 8 {
		t.Errorf("NumStates() = %d, want 8", got)
	}
}

func TestBuilder(t *testing.T) {
	cfg, err := NewBuilder().
		WithTrials(3).
		WithStateSpace(2, 3).
		WithStrengthWeights(1, 2, 3).
		WithRewards(1.0, 0.3).
		WithCosts(0, 0.2).
		WithIterations(100, 10).
		WithSender1SeesPredicate(false).
		WithCorrectID(true).
		WithSeed(42).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.NumStrengths != 3 || len(cfg.StrengthWeights) != 3 {
		t.Errorf("unexpected state space: %+v", cfg)
	}
	if cfg.Sender1SeesPredicate || !cfg.CorrectID {
		t.Errorf("mode flags not applied: %+v", cfg)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}

	if _, err := NewBuilder().WithIterations(10, 0).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Build with zero eval rounds: got %v, want ErrInvalidConfig", err)
	}
}

func TestBuilder_CopiesWeights(t *testing.T) {
	weights := []float64{1, 2}
	b := NewBuilder().WithStrengthWeights(weights...)
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	weights[0] = 99
	if cfg.StrengthWeights[0] != 1 {
		t.Error("Build result shares the caller's weight slice")
	}
}

func mustHash(t *testing.T, c Configuration) string {
	t.Helper()
	h, err := c.Hash()
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	return h
}

func TestHash(t *testing.T) {
	a := Default()
	b := Default()
	if mustHash(t, a) != mustHash(t, b) {
		t.Error("equal configurations hash differently")
	}
	b.CorrectID = true
	if mustHash(t, a) == mustHash(t, b) {
		t.Error("different configurations hash equally")
	}
	if h := mustHash(t, a); len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
}

func TestHash_NonFinite(t *testing.T) {
	c := Default()
	c.PositiveReward = math.Inf(1)
	if _, err := c.Hash(); err == nil {
		t.Error("Hash() should fail for an infinite reward")
	}
}

const exp1 = `
name: exp1
base:
  num_trials: 3
  num_preds: 2
  num_strengths: 2
  pos_reward: 1.0
  neg_reward: 0.3
  pred_cost: 0.0
  m2cost: 0.2
  strength_weights: [1.0, 2.0]
  num_iters: 5000
  num_eval: 500
  s1pred: true
  correct_id: false
conditions:
  exp1/s1pred-correct_id:
    correct_id: true
  exp1/s1pred-no_correct_id: {}
  exp1/no_s1pred-correct_id:
    s1pred: false
    correct_id: true
  exp1/bad:
    strength_weights: [1.0]
`

func TestParseExperiment(t *testing.T) {
	exp, err := ParseExperiment([]byte(exp1))
	if err != nil {
		t.Fatalf("ParseExperiment failed: %v", err)
	}
	if exp.Name != "exp1" {
		t.Errorf("Name = %q, want exp1", exp.Name)
	}
	if len(exp.Conditions) != 4 {
		t.Fatalf("got %d conditions, want 4", len(exp.Conditions))
	}

	byDir := make(map[string]Condition)
	for _, c := range exp.Conditions {
		byDir[c.Dir] = c
	}

	bad := byDir["exp1/bad"]
	if bad.Err == nil || !errors.Is(bad.Err, ErrInvalidConfig) {
		t.Errorf("exp1/bad: Err = %v, want ErrInvalidConfig", bad.Err)
	}

	c := byDir["exp1/no_s1pred-correct_id"]
	if c.Err != nil {
		t.Fatalf("unexpected error: %v", c.Err)
	}
	if c.Config.Sender1SeesPredicate || !c.Config.CorrectID {
		t.Errorf("overrides not applied: %+v", c.Config)
	}
	if c.Config.NumTrainingIters != 5000 || c.Config.SecondMessageCost != 0.2 {
		t.Errorf("base not applied: %+v", c.Config)
	}
	if c.Config.CostlyMessage != constants.DefaultCostlyMessage {
		t.Errorf("CostlyMessage = %d, want default", c.Config.CostlyMessage)
	}

	if got := len(exp.Valid()); got != 3 {
		t.Errorf("Valid() returned %d conditions, want 3", got)
	}
}

func TestParseExperiment_MissingAndUnknownFields(t *testing.T) {
	data := `
base:
  num_trials: 1
conditions:
  a:
    num_preds: 2
  b:
    bogus: 1
`
	exp, err := ParseExperiment([]byte(data))
	if err != nil {
		t.Fatalf("ParseExperiment failed: %v", err)
	}
	for _, c := range exp.Conditions {
		if c.Err == nil {
			t.Errorf("condition %s: expected error", c.Dir)
		}
	}
	if !strings.Contains(exp.Conditions[0].Err.Error(), "missing required fields") {
		t.Errorf("condition a: error %q should report missing fields", exp.Conditions[0].Err)
	}
	if !strings.Contains(exp.Conditions[1].Err.Error(), "unknown field") {
		t.Errorf("condition b: error %q should report unknown field", exp.Conditions[1].Err)
	}
}

func TestParseExperiment_NonFiniteValues(t *testing.T) {
	data := `
base:
  num_trials: 1
  num_preds: 2
  num_strengths: 2
  pos_reward: 1.0
  neg_reward: 0.0
  pred_cost: 0.0
  m2cost: 0.0
  strength_weights: [1.0, 2.0]
  num_iters: 10
  num_eval: 10
  s1pred: true
  correct_id: false
conditions:
  inf_reward:
    pos_reward: .inf
  nan_weight:
    strength_weights: [.nan, 1.0]
  ok: {}
`
	exp, err := ParseExperiment([]byte(data))
	if err != nil {
		t.Fatalf("ParseExperiment failed: %v", err)
	}
	for _, c := range exp.Conditions {
		if c.Dir == "ok" {
			if c.Err != nil {
				t.Errorf("condition ok: unexpected error %v", c.Err)
			}
			continue
		}
		if !errors.Is(c.Err, ErrInvalidConfig) {
			t.Errorf("condition %s: Err = %v, want ErrInvalidConfig", c.Dir, c.Err)
		}
	}
}

func TestParseExperiment_NoConditions(t *testing.T) {
	if _, err := ParseExperiment([]byte("name: empty\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := Default()
	data, err := MarshalSnapshot(cfg)
	if err != nil {
		t.Fatalf("MarshalSnapshot failed: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot failed: %v", err)
	}
	if mustHash(t, got) != mustHash(t, cfg) {
		t.Errorf("snapshot round trip changed configuration: %+v", got)
	}
}
