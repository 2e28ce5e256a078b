// Package classify scores how strongly a trained Sender2 policy conditions
// its second message on the first message it received.
package classify

import (
	"fmt"

	"github.com/nvandessel/compsig/internal/constants"
	"github.com/nvandessel/compsig/internal/urn"
)

// Report is the per-state breakdown behind a nontrivial-signaling score.
type Report struct {
	// Disagreements[s][k] is true when an odd number of first messages
	// commit state s to second message k.
	Disagreements [][]bool
	// Conditioned[s] is true when state s has at least
	// constants.MinDisagreeingMessages disagreeing second messages.
	Conditioned []bool
	// Score counts the conditioned states. It is not normalized.
	Score int
}

// Analyze classifies a Sender2 urn of shape (states, first messages, second
// messages). A (state, msg1) context commits to k when its probability for
// k exceeds threshold.
func Analyze(sender2 *urn.Urn, threshold float64) (Report, error) {
	shape := sender2.Shape()
	if len(shape) != 3 {
		return Report{}, fmt.Errorf("sender2 tensor must have 3 axes, got shape %v", shape)
	}
	if threshold <= 0 || threshold >= 1 {
		return Report{}, fmt.Errorf("commit threshold must be in (0, 1), got %v", threshold)
	}
	numStates, numMsg1, numMsg2 := shape[0], shape[1], shape[2]

	r := Report{
		Disagreements: make([][]bool, numStates),
		Conditioned:   make([]bool, numStates),
	}
	for s := 0; s < numStates; s++ {
		disagree := make([]bool, numMsg2)
		for m := 0; m < numMsg1; m++ {
			probs := sender2.Probabilities(sender2.Context(s, m))
			for k, p := range probs {
				if p > threshold {
					disagree[k] = !disagree[k]
				}
			}
		}

		count := 0
		for _, d := range disagree {
			if d {
				count++
			}
		}
		r.Disagreements[s] = disagree
		if count >= constants.MinDisagreeingMessages {
			r.Conditioned[s] = true
			r.Score++
		}
	}
	return r, nil
}

// NontrivialScore returns the number of states whose second message depends
// on the first message.
func NontrivialScore(sender2 *urn.Urn, threshold float64) (int, error) {
	r, err := Analyze(sender2, threshold)
	if err != nil {
		return 0, err
	}
	return r.Score, nil
}
