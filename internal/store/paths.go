// Package store persists trial artifacts and the results index.
package store

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/nvandessel/compsig/internal/constants"
)

// StatePath returns the hidden state directory under an output root.
func StatePath(root string) string {
	return filepath.Join(root, constants.StateDirName)
}

// IndexPath returns the results index path under an output root.
func IndexPath(root string) string {
	return filepath.Join(StatePath(root), constants.IndexFileName)
}

// TrialBase returns the common prefix of a trial's files, e.g. exp1/a/trial_0.
func TrialBase(dir string, trial int) string {
	return filepath.Join(dir, fmt.Sprintf("trial_%d", trial))
}

// EvalPath returns the path of a trial's evaluation table.
func EvalPath(dir string, trial int) string {
	return TrialBase(dir, trial) + "_eval.csv"
}

// TensorPath returns the path of one agent's weight tensor for a trial.
func TensorPath(dir string, trial int, agent string) string {
	return TrialBase(dir, trial) + "_" + agent + ".arrow"
}

// SummaryPath returns the path of a condition's trial summary table.
func SummaryPath(dir string) string {
	return filepath.Join(dir, constants.SummaryFileName)
}

// SnapshotPath returns the path of a condition's configuration snapshot.
func SnapshotPath(dir string) string {
	return filepath.Join(dir, constants.SnapshotFileName)
}

var trialTensorPattern = regexp.MustCompile(`^trial_(\d+)_sender2\.arrow$`)

// TrialIndices lists the trial indices that have a Sender2 tensor in dir,
// in ascending order.
func TrialIndices(dir string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "trial_*_sender2.arrow"))
	if err != nil {
		return nil, fmt.Errorf("listing trial tensors: %w", err)
	}
	var indices []int
	for _, m := range matches {
		sub := trialTensorPattern.FindStringSubmatch(filepath.Base(m))
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices, nil
}
