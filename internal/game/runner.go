package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/logging"
	"github.com/nvandessel/compsig/internal/states"
)

// Output is everything a finished trial persists.
type Output struct {
	Index   int
	Space   *states.Space
	Agents  *Agents
	Records []EvalRecord
	Summary Summary
}

// ArtifactWriter persists a finished trial under a condition directory.
type ArtifactWriter interface {
	WriteTrial(ctx context.Context, dir string, out *Output) error
}

// Runner drives single trials from initialization to persisted output.
type Runner struct {
	Writer ArtifactWriter
	Logger *slog.Logger
	Trace  *logging.TraceLogger

	// Source, when non-nil, builds the random stream for a trial index.
	// When nil each trial seeds its own PCG stream from the configuration.
	Source func(index int) Source
}

// NewRunner creates a trial runner writing through w.
func NewRunner(w ArtifactWriter, logger *slog.Logger, trace *logging.TraceLogger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{Writer: w, Logger: logger, Trace: trace}
}

// Run executes trial index of cfg, writes its artifacts under dir, and
// returns the evaluation summary. Configuration errors are reported before
// any round is played; a failed write loses the whole trial.
func (r *Runner) Run(ctx context.Context, cfg config.Configuration, dir string, index int) (Summary, error) {
	opts := []TrialOption{WithLogger(r.Logger), WithTrace(r.Trace)}
	if r.Source != nil {
		opts = append(opts, WithSource(r.Source(index)))
	}
	trial, err := NewTrial(cfg, index, opts...)
	if err != nil {
		return Summary{}, fmt.Errorf("trial %d: %w", index, err)
	}

	r.Trace.Log("trial_start", map[string]any{"dir": dir, "trial": index})

	if err := trial.Train(ctx); err != nil {
		return Summary{}, fmt.Errorf("trial %d: training interrupted: %w", index, err)
	}
	records := trial.Evaluate()

	summary, err := Summarize(index, records)
	if err != nil {
		return Summary{}, err
	}

	if r.Writer != nil {
		out := &Output{
			Index:   index,
			Space:   trial.Space(),
			Agents:  trial.Agents(),
			Records: records,
			Summary: summary,
		}
		if err := r.Writer.WriteTrial(ctx, dir, out); err != nil {
			return Summary{}, fmt.Errorf("trial %d: writing artifacts: %w", index, err)
		}
	}

	r.Logger.Info("trial complete", "dir", dir, "trial", index,
		"correct", summary.Correct, "reward", summary.Reward)
	r.Trace.Log("trial_end", map[string]any{
		"dir": dir, "trial": index, "correct": summary.Correct, "reward": summary.Reward,
	})
	return summary, nil
}
