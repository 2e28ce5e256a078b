// Package states enumerates the discrete world states of the signaling game.
//
// A state assigns a strength level to every predicate. The state space is the
// full Cartesian product of strength levels, ordered with the last predicate
// varying fastest, and each state is identified by its position in that order.
package states

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// State is the strength level of each predicate, in predicate order.
type State []int

// String formats the state as a tuple, e.g. "(0, 1)".
func (s State) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Space is an enumerated state space. It is immutable once built.
type Space struct {
	NumPredicates int
	NumStrengths  int
	States        []State
	IDs           []int
}

// Build enumerates every state for numPredicates predicates with numStrengths
// strength levels each.
func Build(numPredicates, numStrengths int) *Space {
	total := 1
	for i := 0; i < numPredicates; i++ {
		total *= numStrengths
	}

	space := &Space{
		NumPredicates: numPredicates,
		NumStrengths:  numStrengths,
		States:        make([]State, total),
		IDs:           make([]int, total),
	}
	for id := 0; id < total; id++ {
		state := make(State, numPredicates)
		rem := id
		for p := numPredicates - 1; p >= 0; p-- {
			state[p] = rem % numStrengths
			rem /= numStrengths
		}
		space.States[id] = state
		space.IDs[id] = id
	}
	return space
}

// Len returns the number of states.
func (s *Space) Len() int {
	return len(s.States)
}

// Value returns the strength of predicate pred in state id.
func (s *Space) Value(id, pred int) int {
	return s.States[id][pred]
}

// PredicateDistribution returns the sampling distribution over state ids used
// when predicate pred is active: each state is weighted by
// strengthWeights[state[pred]] and the weights are normalized to sum to one.
func (s *Space) PredicateDistribution(pred int, strengthWeights []float64) []float64 {
	dist := make([]float64, s.Len())
	for id, state := range s.States {
		dist[id] = strengthWeights[state[pred]]
	}
	total := floats.Sum(dist)
	if total <= 0 {
		panic(fmt.Sprintf("states: strength weights for predicate %d sum to %v", pred, total))
	}
	floats.Scale(1/total, dist)
	return dist
}

// PredicateDistributions returns PredicateDistribution for every predicate.
func (s *Space) PredicateDistributions(strengthWeights []float64) [][]float64 {
	dists := make([][]float64, s.NumPredicates)
	for p := range dists {
		dists[p] = s.PredicateDistribution(p, strengthWeights)
	}
	return dists
}
