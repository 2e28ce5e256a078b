// Package analysis joins trial summaries with their configurations, scores
// saved Sender2 policies, and produces descriptive statistics per condition.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/compsig/internal/classify"
	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/logging"
	"github.com/nvandessel/compsig/internal/store"
	"github.com/nvandessel/compsig/internal/urn"
)

// Row is one trial summary joined with its condition's configuration.
type Row struct {
	RunID      string               `json:"run_id"`
	Dir        string               `json:"dir"`
	Trial      int                  `json:"trial"`
	Correct    float64              `json:"correct"`
	Reward     float64              `json:"reward"`
	Nontrivial *int                 `json:"nontrivial,omitempty"`
	Config     config.Configuration `json:"config"`
}

// Source supplies indexed trial rows.
type Source interface {
	Trials(ctx context.Context, filter store.TrialFilter) ([]store.TrialRow, error)
}

// ErrSuperseded is returned when a row's directory was overwritten by a later
// run, so the tensors on disk no longer belong to the row's run.
var ErrSuperseded = errors.New("artifacts belong to a later run")

// Scorer stores a trial's nontrivial-signaling score.
type Scorer interface {
	SetNontrivial(ctx context.Context, runID, dir string, trial, score int) error
	LastRunForDir(ctx context.Context, dir string) (string, error)
}

// AgentReader loads a saved agent urn.
type AgentReader interface {
	ReadAgent(dir string, trial int, agent string) (*urn.Urn, error)
}

// Gather returns the trial rows matching filter with decoded configurations.
func Gather(ctx context.Context, src Source, filter store.TrialFilter) ([]Row, error) {
	trials, err := src.Trials(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(trials))
	for _, t := range trials {
		cfg, err := t.Config()
		if err != nil {
			return nil, err
		}
		row := Row{
			RunID:   t.RunID,
			Dir:     t.Dir,
			Trial:   t.Trial,
			Correct: t.Correct,
			Reward:  t.Reward,
			Config:  cfg,
		}
		if t.Nontrivial.Valid {
			n := int(t.Nontrivial.Int64)
			row.Nontrivial = &n
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromSummaries builds rows for one condition directly from its summary
// table and snapshot, for directories that were never indexed.
func FromSummaries(dir string, cfg config.Configuration, summaries []game.Summary) []Row {
	rows := make([]Row, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, Row{Dir: dir, Trial: s.Trial, Correct: s.Correct, Reward: s.Reward, Config: cfg})
	}
	return rows
}

// Annotator scores each trial's saved Sender2 urn.
type Annotator struct {
	Agents    AgentReader
	Scores    Scorer // optional
	Threshold float64
	Logger    *slog.Logger
}

// NewAnnotator creates an annotator reading tensors through agents.
func NewAnnotator(agents AgentReader, scores Scorer, threshold float64, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Annotator{Agents: agents, Scores: scores, Threshold: threshold, Logger: logger}
}

// Annotate fills in Nontrivial for every row and stores the score when a
// Scorer is set. Rows are updated in place. With a Scorer, indexed rows whose
// directory was rewritten by a later run fail with ErrSuperseded before
// anything is scored.
func (a *Annotator) Annotate(ctx context.Context, rows []Row) error {
	if a.Scores != nil {
		if err := a.checkCurrent(ctx, rows); err != nil {
			return err
		}
	}
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := &rows[i]
		sender2, err := a.Agents.ReadAgent(r.Dir, r.Trial, game.Sender2Name)
		if err != nil {
			return fmt.Errorf("%s trial %d: %w", r.Dir, r.Trial, err)
		}
		score, err := classify.NontrivialScore(sender2, a.Threshold)
		if err != nil {
			return fmt.Errorf("%s trial %d: %w", r.Dir, r.Trial, err)
		}
		r.Nontrivial = &score
		a.Logger.Debug("trial classified", "dir", r.Dir, "trial", r.Trial, "nontrivial", score)

		if a.Scores != nil && r.RunID != "" {
			if err := a.Scores.SetNontrivial(ctx, r.RunID, r.Dir, r.Trial, score); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Annotator) checkCurrent(ctx context.Context, rows []Row) error {
	owners := make(map[string]string)
	for _, r := range rows {
		if r.RunID == "" {
			continue
		}
		owner, ok := owners[r.Dir]
		if !ok {
			var err error
			owner, err = a.Scores.LastRunForDir(ctx, r.Dir)
			if err != nil {
				return fmt.Errorf("%s: %w", r.Dir, err)
			}
			owners[r.Dir] = owner
		}
		if owner != r.RunID {
			return fmt.Errorf("%w: %s was rewritten by run %s, not %s", ErrSuperseded, r.Dir, owner, r.RunID)
		}
	}
	return nil
}
