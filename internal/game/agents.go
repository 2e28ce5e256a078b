// Package game runs the three-agent signaling game: Sender1 emits a first
// message, Sender2 a second message conditioned on the state and the first
// message, and Receiver1 guesses the state from both messages. Every agent
// learns with urn reinforcement.
package game

import (
	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/urn"
)

// Agent names, used for artifact naming.
const (
	Sender1Name   = "sender1"
	Sender2Name   = "sender2"
	Receiver1Name = "receiver1"
)

// Agents holds the three urns of one trial.
//
// Shapes:
//   - Sender1:   (predicates or states, first messages)
//   - Sender2:   (states, first messages, second messages)
//   - Receiver1: (first messages, second messages, states)
type Agents struct {
	Sender1   *urn.Urn
	Sender2   *urn.Urn
	Receiver1 *urn.Urn
}

// NewAgents allocates uniform urns for a configuration. There is one first
// message per predicate and one second message per strength level.
func NewAgents(cfg config.Configuration) *Agents {
	numStates := cfg.NumStates()
	numMsg1 := cfg.NumPredicates
	numMsg2 := cfg.NumStrengths

	s1Contexts := numStates
	if cfg.Sender1SeesPredicate {
		s1Contexts = cfg.NumPredicates
	}

	return &Agents{
		Sender1:   urn.New(s1Contexts, numMsg1),
		Sender2:   urn.New(numStates, numMsg1, numMsg2),
		Receiver1: urn.New(numMsg1, numMsg2, numStates),
	}
}

// Named returns the urns keyed by agent name.
func (a *Agents) Named() map[string]*urn.Urn {
	return map[string]*urn.Urn{
		Sender1Name:   a.Sender1,
		Sender2Name:   a.Sender2,
		Receiver1Name: a.Receiver1,
	}
}

// Clone returns an independent copy of all three urns.
func (a *Agents) Clone() *Agents {
	return &Agents{
		Sender1:   a.Sender1.Clone(),
		Sender2:   a.Sender2.Clone(),
		Receiver1: a.Receiver1.Clone(),
	}
}

// Equal reports whether all three urns are bit-identical.
func (a *Agents) Equal(other *Agents) bool {
	return a.Sender1.Equal(other.Sender1) &&
		a.Sender2.Equal(other.Sender2) &&
		a.Receiver1.Equal(other.Receiver1)
}
