package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/constants"
	"github.com/nvandessel/compsig/internal/logging"
	"github.com/nvandessel/compsig/internal/states"
	"github.com/nvandessel/compsig/internal/urn"
)

// Source is the randomness a trial draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// EvalRecord is one observed evaluation round.
type EvalRecord struct {
	Predicate int
	State     int
	Msg1      int
	Msg2      int
	Guess     int
	Correct   bool
	Reward    float64
}

// Summary is a trial's mean evaluation correctness and reward.
type Summary struct {
	Trial   int     `json:"trial"`
	Correct float64 `json:"correct"`
	Reward  float64 `json:"reward"`
}

// Trial is one run of training rounds followed by evaluation rounds.
// Urns change only while training; Evaluate leaves them untouched.
type Trial struct {
	cfg    config.Configuration
	index  int
	space  *states.Space
	dists  [][]float64
	agents *Agents
	rng    Source
	logger *slog.Logger
	trace  *logging.TraceLogger
}

// TrialOption customizes a Trial.
type TrialOption func(*Trial)

// WithSource replaces the trial's random stream.
func WithSource(rng Source) TrialOption {
	return func(t *Trial) { t.rng = rng }
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) TrialOption {
	return func(t *Trial) { t.logger = logger }
}

// WithTrace sets the JSONL trace logger.
func WithTrace(trace *logging.TraceLogger) TrialOption {
	return func(t *Trial) { t.trace = trace }
}

// NewTrial validates cfg and prepares trial index with uniform urns. The
// default random stream is a PCG seeded with (cfg.Seed, index), so trials
// are reproducible and independent of one another.
func NewTrial(cfg config.Configuration, index int, opts ...TrialOption) (*Trial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	space := states.Build(cfg.NumPredicates, cfg.NumStrengths)
	t := &Trial{
		cfg:    cfg,
		index:  index,
		space:  space,
		dists:  space.PredicateDistributions(cfg.StrengthWeights),
		agents: NewAgents(cfg),
		rng:    rand.New(rand.NewPCG(cfg.Seed, uint64(index))),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Agents returns the trial's live urns.
func (t *Trial) Agents() *Agents { return t.agents }

// Space returns the trial's state space.
func (t *Trial) Space() *states.Space { return t.space }

// Index returns the trial index.
func (t *Trial) Index() int { return t.index }

// Play runs one round. When learn is true, all three chosen entries are
// reinforced by the round's reward.
func (t *Trial) Play(learn bool) EvalRecord {
	pred := t.rng.IntN(t.cfg.NumPredicates)
	state := urn.Draw(t.rng, t.dists[pred])

	s1ctx := state
	if t.cfg.Sender1SeesPredicate {
		s1ctx = pred
	}
	msg1 := t.agents.Sender1.Sample(t.rng, s1ctx)

	s2ctx := t.agents.Sender2.Context(state, msg1)
	msg2 := t.agents.Sender2.Sample(t.rng, s2ctx)

	r1ctx := t.agents.Receiver1.Context(msg1, msg2)
	guess := t.agents.Receiver1.Sample(t.rng, r1ctx)

	var correct bool
	if t.cfg.CorrectID {
		correct = guess == state
	} else {
		correct = t.space.Value(state, pred) == t.space.Value(guess, pred)
	}
	reward := Reward(correct, t.cfg, msg2)

	if learn {
		urn.ReinforceAll(reward,
			urn.Pick{Urn: t.agents.Sender1, Ctx: s1ctx, Choice: msg1},
			urn.Pick{Urn: t.agents.Sender2, Ctx: s2ctx, Choice: msg2},
			urn.Pick{Urn: t.agents.Receiver1, Ctx: r1ctx, Choice: guess},
		)
	}

	return EvalRecord{
		Predicate: pred,
		State:     state,
		Msg1:      msg1,
		Msg2:      msg2,
		Guess:     guess,
		Correct:   correct,
		Reward:    reward,
	}
}

// Train runs the configured number of training rounds. It returns early with
// the context's error if ctx is cancelled; the trial must then be discarded.
func (t *Trial) Train(ctx context.Context) error {
	windowCorrect := 0
	for i := 0; i < t.cfg.NumTrainingIters; i++ {
		rec := t.Play(true)
		if rec.Correct {
			windowCorrect++
		}

		if (i+1)%constants.ProgressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.logProgress(i+1, windowCorrect, rec)
			windowCorrect = 0
		}
	}
	return nil
}

// Evaluate runs the configured number of evaluation rounds without touching
// the urns.
func (t *Trial) Evaluate() []EvalRecord {
	records := make([]EvalRecord, t.cfg.NumEvalIters)
	for i := range records {
		records[i] = t.Play(false)
	}
	return records
}

func (t *Trial) logProgress(round, windowCorrect int, last EvalRecord) {
	t.logger.Debug("training progress",
		"trial", t.index,
		"round", round,
		"window_correct", windowCorrect,
		"window", constants.ProgressInterval)
	t.logger.Log(context.Background(), logging.LevelTrace, "last round",
		"trial", t.index,
		"state", t.space.States[last.State].String(),
		"guess", t.space.States[last.Guess].String(),
		"pred", last.Predicate,
		"msg", fmt.Sprintf("%d%d", last.Msg1, last.Msg2),
		"correct", last.Correct)
	t.trace.Log("training_window", map[string]any{
		"trial":          t.index,
		"round":          round,
		"window_correct": windowCorrect,
	})
}

// Summarize averages correctness and reward over evaluation records.
func Summarize(index int, records []EvalRecord) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, fmt.Errorf("trial %d: no evaluation records to summarize", index)
	}
	var correct, reward float64
	for _, r := range records {
		if r.Correct {
			correct++
		}
		reward += r.Reward
	}
	n := float64(len(records))
	return Summary{Trial: index, Correct: correct / n, Reward: reward / n}, nil
}
