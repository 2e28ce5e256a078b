package simulation

import (
	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/store"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name   string
	Config config.Configuration

	// Trials lists the trial indices to play. Empty means trial 0 only.
	Trials []int

	// Windows splits training into this many equal windows. Values below
	// one are treated as one.
	Windows int

	// Threshold is the classifier commit threshold. Zero uses the default.
	Threshold float64

	// BeforeWindow, when non-nil, is called before each training window.
	// Use this to perturb the urns mid-training.
	BeforeWindow func(trial, window int, agents *game.Agents)
}

// WindowResult captures the state of a trial after one training window.
type WindowResult struct {
	Index     int
	Rounds    int     // rounds played in this window
	Correct   float64 // fraction of correct rounds in this window
	MinWeight float64 // smallest weight across all three urns
}

// TrialResult captures a played trial.
type TrialResult struct {
	Index   int
	Windows []WindowResult
	Agents  *game.Agents
	Records []game.EvalRecord
	Summary game.Summary

	// Frozen is true when evaluation left every urn untouched.
	Frozen bool

	// Nontrivial is the classifier score of the Sender2 tensor as read
	// back from the artifact store.
	Nontrivial int
}

// SimulationResult captures all trials and the artifact store they were
// written to.
type SimulationResult struct {
	Scenario  string
	Dir       string
	Trials    []TrialResult
	Artifacts *store.Artifacts
}
