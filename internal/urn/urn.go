// Package urn implements Roth–Erev urn learning: per-context weights over
// choices, sampled in proportion to weight and reinforced by reward.
package urn

import (
	"fmt"
	"math"

	"github.com/nvandessel/compsig/internal/constants"
	"gonum.org/v1/gonum/floats"
)

// Source is the randomness an urn draws from. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	Float64() float64
}

// Urn is a weight tensor indexed by (context, choice). The shape lists the
// context dimensions followed by the number of choices; contexts are stored
// row-major so the last context dimension varies fastest.
//
// Every weight is at least the floor: Reinforce clamps instead of letting a
// weight drop below it, so each row is always a valid distribution.
type Urn struct {
	shape    []int
	contexts int
	choices  int
	floor    float64
	weights  []float64
}

// New creates an urn of the given shape with every weight set to
// constants.InitialWeight. The shape needs at least one context dimension
// and the choice count.
func New(shape ...int) *Urn {
	if len(shape) < 2 {
		panic(fmt.Sprintf("urn: shape %v needs a context dimension and a choice count", shape))
	}
	contexts := 1
	for _, d := range shape[:len(shape)-1] {
		if d <= 0 {
			panic(fmt.Sprintf("urn: non-positive dimension in shape %v", shape))
		}
		contexts *= d
	}
	choices := shape[len(shape)-1]
	if choices <= 0 {
		panic(fmt.Sprintf("urn: non-positive choice count in shape %v", shape))
	}

	weights := make([]float64, contexts*choices)
	for i := range weights {
		weights[i] = constants.InitialWeight
	}
	return &Urn{
		shape:    append([]int(nil), shape...),
		contexts: contexts,
		choices:  choices,
		floor:    constants.WeightFloor,
		weights:  weights,
	}
}

// FromWeights rebuilds an urn from a shape and flat row-major weights, as
// produced by Shape and Weights. Weights must all be positive.
func FromWeights(shape []int, weights []float64) (*Urn, error) {
	if len(shape) < 2 {
		return nil, fmt.Errorf("shape %v needs a context dimension and a choice count", shape)
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("non-positive dimension in shape %v", shape)
		}
		size *= d
	}
	if len(weights) != size {
		return nil, fmt.Errorf("shape %v holds %d weights, got %d", shape, size, len(weights))
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 1) {
			return nil, fmt.Errorf("weight %d is %v, want a finite positive value", i, w)
		}
	}

	u := New(shape...)
	copy(u.weights, weights)
	return u, nil
}

// WithFloor sets the reinforcement floor and returns the urn.
func (u *Urn) WithFloor(floor float64) *Urn {
	if !(floor > 0) {
		panic(fmt.Sprintf("urn: floor must be positive, got %v", floor))
	}
	u.floor = floor
	return u
}

// Shape returns a copy of the urn's shape.
func (u *Urn) Shape() []int {
	return append([]int(nil), u.shape...)
}

// Contexts returns the number of contexts.
func (u *Urn) Contexts() int { return u.contexts }

// Choices returns the number of choices per context.
func (u *Urn) Choices() int { return u.choices }

// Floor returns the reinforcement floor.
func (u *Urn) Floor() float64 { return u.floor }

// Context maps a multi-dimensional context index to its flat row index.
func (u *Urn) Context(idx ...int) int {
	dims := u.shape[:len(u.shape)-1]
	if len(idx) != len(dims) {
		panic(fmt.Sprintf("urn: context index %v does not match context dims %v", idx, dims))
	}
	flat := 0
	for i, v := range idx {
		if v < 0 || v >= dims[i] {
			panic(fmt.Sprintf("urn: context index %v out of range for dims %v", idx, dims))
		}
		flat = flat*dims[i] + v
	}
	return flat
}

// Weight returns the weight of choice in context ctx.
func (u *Urn) Weight(ctx, choice int) float64 {
	return u.weights[u.offset(ctx, choice)]
}

// Row returns a copy of the weights for context ctx.
func (u *Urn) Row(ctx int) []float64 {
	start := u.offset(ctx, 0)
	return append([]float64(nil), u.weights[start:start+u.choices]...)
}

// Weights returns a copy of all weights in row-major order.
func (u *Urn) Weights() []float64 {
	return append([]float64(nil), u.weights...)
}

// Probabilities normalizes the row for context ctx by its sum.
// A non-positive row sum means the floor invariant was broken and panics.
func (u *Urn) Probabilities(ctx int) []float64 {
	row := u.Row(ctx)
	total := floats.Sum(row)
	if !(total > 0) {
		panic(fmt.Sprintf("urn: context %d has weight sum %v", ctx, total))
	}
	for i := range row {
		row[i] /= total
	}
	return row
}

// Sample draws a choice for context ctx with probability proportional to its
// weight. It does not modify the urn.
func (u *Urn) Sample(rng Source, ctx int) int {
	return Draw(rng, u.Probabilities(ctx))
}

// Reinforce adds amount to the weight of choice in context ctx. A result
// below the floor, including a tiny positive residue left by cancellation,
// is clamped to the floor. Negative amounts punish.
func (u *Urn) Reinforce(ctx, choice int, amount float64) {
	i := u.offset(ctx, choice)
	u.weights[i] = clampWeight(u.weights[i]+amount, u.floor)
}

// Clone returns an independent copy of the urn.
func (u *Urn) Clone() *Urn {
	return &Urn{
		shape:    u.Shape(),
		contexts: u.contexts,
		choices:  u.choices,
		floor:    u.floor,
		weights:  u.Weights(),
	}
}

// Equal reports whether two urns have the same shape and bit-identical weights.
func (u *Urn) Equal(other *Urn) bool {
	if other == nil || len(u.shape) != len(other.shape) || len(u.weights) != len(other.weights) {
		return false
	}
	for i := range u.shape {
		if u.shape[i] != other.shape[i] {
			return false
		}
	}
	for i := range u.weights {
		if math.Float64bits(u.weights[i]) != math.Float64bits(other.weights[i]) {
			return false
		}
	}
	return true
}

func (u *Urn) offset(ctx, choice int) int {
	if ctx < 0 || ctx >= u.contexts {
		panic(fmt.Sprintf("urn: context %d out of range [0, %d)", ctx, u.contexts))
	}
	if choice < 0 || choice >= u.choices {
		panic(fmt.Sprintf("urn: choice %d out of range [0, %d)", choice, u.choices))
	}
	return ctx*u.choices + choice
}

// clampWeight keeps a reinforced weight at or above floor.
func clampWeight(w, floor float64) float64 {
	if w < floor || math.IsNaN(w) {
		return floor
	}
	return w
}
