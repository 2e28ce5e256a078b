package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/urn"
)

// Artifacts writes and reads trial and condition files under an output root.
// Condition directories are interpreted relative to the root.
type Artifacts struct {
	Root string
}

// NewArtifacts creates an artifact store rooted at root.
func NewArtifacts(root string) *Artifacts {
	return &Artifacts{Root: root}
}

// Dir resolves a condition directory against the root.
func (a *Artifacts) Dir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(a.Root, dir)
}

// WriteTrial writes the evaluation table and the three weight tensors of a
// finished trial.
func (a *Artifacts) WriteTrial(ctx context.Context, dir string, out *game.Output) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := a.Dir(dir)
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeFile(EvalPath(full, out.Index), func(w io.Writer) error {
		return WriteEvalRecords(w, out.Records)
	}); err != nil {
		return err
	}

	for name, u := range out.Agents.Named() {
		if err := WriteTensor(TensorPath(full, out.Index, name), TensorFromUrn(name, u)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCondition writes a condition's trial summary table and its
// configuration snapshot.
func (a *Artifacts) WriteCondition(ctx context.Context, dir string, cfg config.Configuration, summaries []game.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := a.Dir(dir)
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeFile(SummaryPath(full), func(w io.Writer) error {
		return WriteSummaries(w, summaries)
	}); err != nil {
		return err
	}

	data, err := config.MarshalSnapshot(cfg)
	if err != nil {
		return fmt.Errorf("encoding configuration snapshot: %w", err)
	}
	if err := os.WriteFile(SnapshotPath(full), data, 0644); err != nil {
		return fmt.Errorf("writing configuration snapshot: %w", err)
	}
	return nil
}

// ReadAgent loads one agent's urn for a trial.
func (a *Artifacts) ReadAgent(dir string, trial int, agent string) (*urn.Urn, error) {
	t, err := ReadTensor(TensorPath(a.Dir(dir), trial, agent))
	if err != nil {
		return nil, err
	}
	return t.Urn()
}

// ReadSnapshot loads a condition's configuration snapshot.
func (a *Artifacts) ReadSnapshot(dir string) (config.Configuration, error) {
	data, err := os.ReadFile(SnapshotPath(a.Dir(dir)))
	if err != nil {
		return config.Configuration{}, fmt.Errorf("reading configuration snapshot: %w", err)
	}
	return config.UnmarshalSnapshot(data)
}

// ReadSummaries loads a condition's trial summary table.
func (a *Artifacts) ReadSummaries(dir string) ([]game.Summary, error) {
	f, err := os.Open(SummaryPath(a.Dir(dir)))
	if err != nil {
		return nil, fmt.Errorf("opening summary table: %w", err)
	}
	defer f.Close()
	return ReadSummaries(f)
}

// ReadEvalRecords loads a trial's evaluation table.
func (a *Artifacts) ReadEvalRecords(dir string, trial int) ([]game.EvalRecord, error) {
	f, err := os.Open(EvalPath(a.Dir(dir), trial))
	if err != nil {
		return nil, fmt.Errorf("opening evaluation table: %w", err)
	}
	defer f.Close()
	return ReadEvalRecords(f)
}

// Trials lists the trial indices with saved tensors in a condition directory.
func (a *Artifacts) Trials(dir string) ([]int, error) {
	return TrialIndices(a.Dir(dir))
}
