package urn

// Draw samples an index from a probability vector. Rounding slack at the top
// of the cumulative sum falls to the last index with positive probability.
func Draw(rng Source, probs []float64) int {
	x := rng.Float64()
	last := -1
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		last = i
		x -= p
		if x < 0 {
			return i
		}
	}
	if last < 0 {
		panic("urn: draw from a vector with no positive entries")
	}
	return last
}

// Pick identifies one (context, choice) entry of an urn chosen in a round.
type Pick struct {
	Urn    *Urn
	Ctx    int
	Choice int
}

// ReinforceAll applies the same amount to every pick. Picks are independent,
// so the order of application does not matter.
func ReinforceAll(amount float64, picks ...Pick) {
	for _, p := range picks {
		p.Urn.Reinforce(p.Ctx, p.Choice, amount)
	}
}
