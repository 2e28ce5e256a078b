package simulation

import (
	"testing"
)

// AssertUrnFloor asserts that no urn weight fell below floor after any
// training window.
func AssertUrnFloor(t *testing.T, result SimulationResult, floor float64) {
	t.Helper()
	for _, tr := range result.Trials {
		for _, w := range tr.Windows {
			if w.MinWeight < floor {
				t.Errorf("AssertUrnFloor: trial %d window %d: min weight %g < floor %g", tr.Index, w.Index, w.MinWeight, floor)
			}
		}
	}
}

// AssertFrozenEvaluation asserts that evaluation never changed an urn.
func AssertFrozenEvaluation(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, tr := range result.Trials {
		if !tr.Frozen {
			t.Errorf("AssertFrozenEvaluation: trial %d: urns changed during evaluation", tr.Index)
		}
	}
}

// AssertAboveBaseline asserts that every trial's evaluation correctness is at
// least minCorrect.
func AssertAboveBaseline(t *testing.T, result SimulationResult, minCorrect float64) {
	t.Helper()
	for _, tr := range result.Trials {
		if tr.Summary.Correct < minCorrect {
			t.Errorf("AssertAboveBaseline: trial %d: correct %.3f < %.3f", tr.Index, tr.Summary.Correct, minCorrect)
		}
	}
}

// AssertLearningImproves asserts that the last training window is at least
// as accurate as the first, minus slack, averaged over trials.
func AssertLearningImproves(t *testing.T, result SimulationResult, slack float64) {
	t.Helper()
	var first, last float64
	n := 0
	for _, tr := range result.Trials {
		if len(tr.Windows) < 2 {
			continue
		}
		first += tr.Windows[0].Correct
		last += tr.Windows[len(tr.Windows)-1].Correct
		n++
	}
	if n == 0 {
		t.Fatal("AssertLearningImproves: need at least two windows")
	}
	first /= float64(n)
	last /= float64(n)
	if last+slack < first {
		t.Errorf("AssertLearningImproves: mean correctness fell from %.3f to %.3f", first, last)
	}
}

// AssertNontrivialInRange asserts that every trial's classifier score lies
// in [min, max].
func AssertNontrivialInRange(t *testing.T, result SimulationResult, min, max int) {
	t.Helper()
	for _, tr := range result.Trials {
		if tr.Nontrivial < min || tr.Nontrivial > max {
			t.Errorf("AssertNontrivialInRange: trial %d: score %d not in [%d, %d]", tr.Index, tr.Nontrivial, min, max)
		}
	}
}
