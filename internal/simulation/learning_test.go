package simulation_test

import (
	"testing"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/constants"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/simulation"
)

func baseConfig(t *testing.T) config.Configuration {
	t.Helper()
	cfg, err := config.NewBuilder().
		WithStateSpace(2, 2).
		WithStrengthWeights(1, 2).
		WithRewards(1.0, 0.3).
		WithCosts(0, 0.2).
		WithIterations(5000, 500).
		WithSender1SeesPredicate(true).
		WithCorrectID(false).
		WithSeed(7).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cfg
}

// TestLearningCurve trains three trials in ten windows and checks that the
// chain ends up signaling above chance without touching urns at evaluation.
func TestLearningCurve(t *testing.T) {
	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{
		Name:    "curve",
		Config:  baseConfig(t),
		Trials:  []int{0, 1, 2},
		Windows: 10,
	})

	if len(result.Trials) != 3 {
		t.Fatalf("got %d trials, want 3", len(result.Trials))
	}
	for _, tr := range result.Trials {
		if len(tr.Windows) != 10 {
			t.Errorf("trial %d: %d windows, want 10", tr.Index, len(tr.Windows))
		}
		rounds := 0
		for _, w := range tr.Windows {
			rounds += w.Rounds
		}
		if rounds != 5000 {
			t.Errorf("trial %d: played %d training rounds, want 5000", tr.Index, rounds)
		}
	}

	simulation.AssertAboveBaseline(t, result, 0.5)
	simulation.AssertLearningImproves(t, result, 0.05)
	simulation.AssertFrozenEvaluation(t, result)
	simulation.AssertUrnFloor(t, result, constants.WeightFloor)
	simulation.AssertNontrivialInRange(t, result, 0, 4)
}

// TestHarshPunishmentKeepsUrnsPositive drives many weights toward zero with a
// large negative reward and checks the floor holds after every window.
func TestHarshPunishmentKeepsUrnsPositive(t *testing.T) {
	cfg := baseConfig(t)
	cfg.NegativeReward = 5
	cfg.SecondMessageCost = 2

	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{Name: "harsh", Config: cfg, Windows: 5})

	simulation.AssertUrnFloor(t, result, constants.WeightFloor)
	simulation.AssertFrozenEvaluation(t, result)
}

// TestUntrainedPolicyIsTrivial evaluates fresh uniform urns: nothing
// commits, so the classifier reports no conditioning.
func TestUntrainedPolicyIsTrivial(t *testing.T) {
	cfg := baseConfig(t)
	cfg.NumTrainingIters = 0

	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{Name: "untrained", Config: cfg, Windows: 3})

	tr := result.Trials[0]
	for _, w := range tr.Windows {
		if w.Rounds != 0 {
			t.Errorf("window %d played %d rounds, want 0", w.Index, w.Rounds)
		}
		if w.MinWeight != constants.InitialWeight {
			t.Errorf("window %d min weight %v, want %v", w.Index, w.MinWeight, constants.InitialWeight)
		}
	}
	simulation.AssertNontrivialInRange(t, result, 0, 0)
	simulation.AssertFrozenEvaluation(t, result)
}

// TestForcedConditioningIsDetected pushes Sender2 in state 0 toward a
// different second message for each first message before training starts.
// With no training rounds the persisted tensor keeps that structure.
func TestForcedConditioningIsDetected(t *testing.T) {
	cfg := baseConfig(t)
	cfg.NumTrainingIters = 0

	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{
		Name:   "forced",
		Config: cfg,
		BeforeWindow: func(trial, window int, agents *game.Agents) {
			s2 := agents.Sender2
			s2.Reinforce(s2.Context(0, 0), 0, 100)
			s2.Reinforce(s2.Context(0, 1), 1, 100)
		},
	})

	simulation.AssertNontrivialInRange(t, result, 1, 1)
}
