package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/compsig/internal/constants"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Configuration is the full parameter set of one experimental condition.
// Values are treated as immutable once validated; the experiment and trial
// runners only read them.
type Configuration struct {
	NumTrials     int `json:"num_trials" yaml:"num_trials"`
	NumPredicates int `json:"num_preds" yaml:"num_preds"`
	NumStrengths  int `json:"num_strengths" yaml:"num_strengths"`

	PositiveReward    float64 `json:"pos_reward" yaml:"pos_reward"`
	NegativeReward    float64 `json:"neg_reward" yaml:"neg_reward"`
	PredicateCost     float64 `json:"pred_cost" yaml:"pred_cost"`
	SecondMessageCost float64 `json:"m2cost" yaml:"m2cost"`

	// CostlyMessage is the second message that incurs SecondMessageCost.
	// An index at or beyond NumStrengths is never sent, so no message is costly.
	CostlyMessage int `json:"costly_msg" yaml:"costly_msg"`

	// StrengthWeights holds one sampling weight per strength level.
	StrengthWeights []float64 `json:"strength_weights" yaml:"strength_weights"`

	NumTrainingIters int `json:"num_iters" yaml:"num_iters"`
	NumEvalIters     int `json:"num_eval" yaml:"num_eval"`

	// Sender1SeesPredicate gives Sender1 the active predicate as context;
	// otherwise Sender1 sees the full state.
	Sender1SeesPredicate bool `json:"s1pred" yaml:"s1pred"`

	// CorrectID scores a round on exact state identity; otherwise only the
	// active predicate's strength must match.
	CorrectID bool `json:"correct_id" yaml:"correct_id"`

	// Seed is the base seed for every trial's random stream.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// Default returns the default condition: two binary predicates with
// strength 1 twice as likely as strength 0.
func Default() Configuration {
	return Configuration{
		NumTrials:            1,
		NumPredicates:        2,
		NumStrengths:         2,
		PositiveReward:       1.0,
		NegativeReward:       0.0,
		PredicateCost:        0.0,
		SecondMessageCost:    0.0,
		CostlyMessage:        constants.DefaultCostlyMessage,
		StrengthWeights:      []float64{1.0, 2.0},
		NumTrainingIters:     50000,
		NumEvalIters:         2000,
		Sender1SeesPredicate: true,
		CorrectID:            false,
		Seed:                 1,
	}
}

// NumStates returns the size of the state space.
func (c Configuration) NumStates() int {
	n := 1
	for i := 0; i < c.NumPredicates; i++ {
		n *= c.NumStrengths
	}
	return n
}

// Validate checks structural constraints. Every failure wraps ErrInvalidConfig.
func (c Configuration) Validate() error {
	var errs []error
	if c.NumTrials < 1 {
		errs = append(errs, fmt.Errorf("num_trials must be at least 1, got %d", c.NumTrials))
	}
	if c.NumPredicates < 1 {
		errs = append(errs, fmt.Errorf("num_preds must be at least 1, got %d", c.NumPredicates))
	}
	if c.NumStrengths < 1 {
		errs = append(errs, fmt.Errorf("num_strengths must be at least 1, got %d", c.NumStrengths))
	}
	if len(c.StrengthWeights) != c.NumStrengths {
		errs = append(errs, fmt.Errorf("strength_weights has %d entries, want num_strengths=%d", len(c.StrengthWeights), c.NumStrengths))
	}
	total := 0.0
	for i, w := range c.StrengthWeights {
		if !isFinite(w) {
			errs = append(errs, fmt.Errorf("strength_weights[%d] must be finite, got %v", i, w))
			continue
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("strength_weights[%d] is negative: %v", i, w))
		}
		total += w
	}
	if len(c.StrengthWeights) > 0 && total <= 0 {
		errs = append(errs, fmt.Errorf("strength_weights must have a positive sum"))
	}
	if c.NumTrainingIters < 0 {
		errs = append(errs, fmt.Errorf("num_iters must be non-negative, got %d", c.NumTrainingIters))
	}
	if c.NumEvalIters <= 0 {
		errs = append(errs, fmt.Errorf("num_eval must be positive, got %d", c.NumEvalIters))
	}
	if c.CostlyMessage < 0 {
		errs = append(errs, fmt.Errorf("costly_msg must be non-negative, got %d", c.CostlyMessage))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"pos_reward", c.PositiveReward},
		{"neg_reward", c.NegativeReward},
		{"pred_cost", c.PredicateCost},
		{"m2cost", c.SecondMessageCost},
	} {
		if !isFinite(f.v) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", f.name, f.v))
		}
	}
	if c.NegativeReward < 0 || c.PositiveReward < 0 {
		errs = append(errs, fmt.Errorf("pos_reward and neg_reward must be non-negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Hash returns the hex SHA-256 of the configuration's canonical JSON encoding.
// It fails for configurations holding NaN or infinite values.
func (c Configuration) Hash() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("hashing configuration: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Builder constructs a validated Configuration starting from Default.
type Builder struct {
	cfg Configuration
}

// NewBuilder creates a Builder seeded with Default values.
func NewBuilder() *Builder {
	return &Builder{cfg: Default()}
}

// From replaces the builder's current values.
func (b *Builder) From(cfg Configuration) *Builder {
	b.cfg = cfg
	b.cfg.StrengthWeights = append([]float64(nil), cfg.StrengthWeights...)
	return b
}

// WithTrials sets the number of trials.
func (b *Builder) WithTrials(n int) *Builder {
	b.cfg.NumTrials = n
	return b
}

// WithStateSpace sets the number of predicates and strength levels.
func (b *Builder) WithStateSpace(predicates, strengths int) *Builder {
	b.cfg.NumPredicates = predicates
	b.cfg.NumStrengths = strengths
	return b
}

// WithStrengthWeights sets the per-strength sampling weights.
func (b *Builder) WithStrengthWeights(weights ...float64) *Builder {
	b.cfg.StrengthWeights = append([]float64(nil), weights...)
	return b
}

// WithRewards sets the success reward and failure penalty.
func (b *Builder) WithRewards(positive, negative float64) *Builder {
	b.cfg.PositiveReward = positive
	b.cfg.NegativeReward = negative
	return b
}

// WithCosts sets the predicate cost and the second-message cost.
func (b *Builder) WithCosts(predicate, secondMessage float64) *Builder {
	b.cfg.PredicateCost = predicate
	b.cfg.SecondMessageCost = secondMessage
	return b
}

// WithCostlyMessage sets the second message that incurs the cost.
func (b *Builder) WithCostlyMessage(msg int) *Builder {
	b.cfg.CostlyMessage = msg
	return b
}

// WithIterations sets the number of training and evaluation rounds.
func (b *Builder) WithIterations(training, eval int) *Builder {
	b.cfg.NumTrainingIters = training
	b.cfg.NumEvalIters = eval
	return b
}

// WithSender1SeesPredicate sets Sender1's context mode.
func (b *Builder) WithSender1SeesPredicate(v bool) *Builder {
	b.cfg.Sender1SeesPredicate = v
	return b
}

// WithCorrectID sets exact-state scoring.
func (b *Builder) WithCorrectID(v bool) *Builder {
	b.cfg.CorrectID = v
	return b
}

// WithSeed sets the base random seed.
func (b *Builder) WithSeed(seed uint64) *Builder {
	b.cfg.Seed = seed
	return b
}

// Build validates and returns the configuration.
func (b *Builder) Build() (Configuration, error) {
	cfg := b.cfg
	cfg.StrengthWeights = append([]float64(nil), b.cfg.StrengthWeights...)
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}
