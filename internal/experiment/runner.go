// Package experiment runs every condition of an experiment through the trial
// runner and collects per-trial summaries.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/logging"
)

// ConditionWriter persists a finished condition's summary table and
// configuration snapshot.
type ConditionWriter interface {
	WriteCondition(ctx context.Context, dir string, cfg config.Configuration, summaries []game.Summary) error
}

// Recorder stores run results in a queryable index.
type Recorder interface {
	StartRun(ctx context.Context, experiment string) (string, error)
	RecordCondition(ctx context.Context, runID, dir string, cfg config.Configuration, condErr error) error
	RecordTrials(ctx context.Context, runID, dir string, summaries []game.Summary) error
	FinishRun(ctx context.Context, runID string) error
}

// ConditionResult is the outcome of one condition.
type ConditionResult struct {
	Dir       string               `json:"dir"`
	Config    config.Configuration `json:"config"`
	Summaries []game.Summary       `json:"summaries,omitempty"`
	Err       error                `json:"-"`
	Error     string               `json:"error,omitempty"`
}

// Result is the outcome of an experiment run.
type Result struct {
	RunID      string            `json:"run_id,omitempty"`
	Experiment string            `json:"experiment"`
	Conditions []ConditionResult `json:"conditions"`
}

// Failed returns the conditions that did not complete.
func (r *Result) Failed() []ConditionResult {
	var failed []ConditionResult
	for _, c := range r.Conditions {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// Runner executes experiments. Trials and conditions run sequentially.
type Runner struct {
	Trials *game.Runner
	Writer ConditionWriter
	Index  Recorder // optional
	Logger *slog.Logger
	Trace  *logging.TraceLogger
}

// NewRunner creates an experiment runner.
func NewRunner(trials *game.Runner, w ConditionWriter, index Recorder, logger *slog.Logger, trace *logging.TraceLogger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{Trials: trials, Writer: w, Index: index, Logger: logger, Trace: trace}
}

// FromConfigurations builds an experiment from a mapping of output directory
// to configuration. Each configuration is validated on its own.
func FromConfigurations(name string, conditions map[string]config.Configuration) *config.Experiment {
	dirs := make([]string, 0, len(conditions))
	for dir := range conditions {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	exp := &config.Experiment{Name: name}
	for _, dir := range dirs {
		cfg := conditions[dir]
		exp.Conditions = append(exp.Conditions, config.Condition{Dir: dir, Config: cfg, Err: cfg.Validate()})
	}
	return exp
}

// Run executes every condition of exp. A condition that fails validation,
// training, or storage is reported in the result and in the joined error;
// the remaining conditions still run. Cancellation stops the whole run.
func (r *Runner) Run(ctx context.Context, exp *config.Experiment) (*Result, error) {
	result := &Result{Experiment: exp.Name}

	if r.Index != nil {
		runID, err := r.Index.StartRun(ctx, exp.Name)
		if err != nil {
			return nil, err
		}
		result.RunID = runID
	}
	r.Logger.Info("experiment started", "experiment", exp.Name, "conditions", len(exp.Conditions), "run", result.RunID)

	var errs []error
	for _, cond := range exp.Conditions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cr := r.runCondition(ctx, result.RunID, cond)
		if cr.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			cr.Error = cr.Err.Error()
			errs = append(errs, fmt.Errorf("condition %s: %w", cond.Dir, cr.Err))
			r.Logger.Warn("condition failed", "dir", cond.Dir, "error", cr.Err)
			r.Trace.Log("condition_error", map[string]any{"dir": cond.Dir, "error": cr.Err.Error()})
		}
		result.Conditions = append(result.Conditions, cr)
	}

	if r.Index != nil {
		if err := r.Index.FinishRun(ctx, result.RunID); err != nil {
			errs = append(errs, err)
		}
	}
	r.Logger.Info("experiment finished", "experiment", exp.Name,
		"conditions", len(result.Conditions), "failed", len(result.Failed()))
	return result, errors.Join(errs...)
}

func (r *Runner) runCondition(ctx context.Context, runID string, cond config.Condition) ConditionResult {
	cr := ConditionResult{Dir: cond.Dir, Config: cond.Config, Err: cond.Err}
	if cr.Err == nil {
		cr.Summaries, cr.Err = r.runTrials(ctx, cond)
	}
	if cr.Err == nil && r.Writer != nil {
		cr.Err = r.Writer.WriteCondition(ctx, cond.Dir, cond.Config, cr.Summaries)
	}

	if r.Index != nil && ctx.Err() == nil {
		if err := r.Index.RecordCondition(ctx, runID, cond.Dir, cond.Config, cr.Err); err != nil {
			cr.Err = errors.Join(cr.Err, err)
			return cr
		}
		if cr.Err == nil {
			if err := r.Index.RecordTrials(ctx, runID, cond.Dir, cr.Summaries); err != nil {
				cr.Err = err
			}
		}
	}
	return cr
}

func (r *Runner) runTrials(ctx context.Context, cond config.Condition) ([]game.Summary, error) {
	summaries := make([]game.Summary, 0, cond.Config.NumTrials)
	for i := 0; i < cond.Config.NumTrials; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := r.Trials.Run(ctx, cond.Config, cond.Dir, i)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
