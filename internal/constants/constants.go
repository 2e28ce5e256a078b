// Package constants provides named constants used throughout the compsig codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Urn reinforcement constants
const (
	// WeightFloor is the smallest weight an urn entry may hold after reinforcement.
	// A punishment that would drive a weight to zero or below clamps it here instead,
	// so every choice stays reachable.
	WeightFloor = 1e-6

	// InitialWeight is the weight every urn entry starts with.
	InitialWeight = 1.0
)

// Classifier constants
const (
	// DefaultCommitThreshold is the probability above which a Sender2 context
	// is said to commit to a second message.
	DefaultCommitThreshold = 0.75

	// MinDisagreeingMessages is the number of second messages that must show
	// disagreement across first messages for a state to count as conditioned.
	MinDisagreeingMessages = 2
)

// Reward constants
const (
	// DefaultCostlyMessage is the second-message index that incurs the
	// second-message cost.
	DefaultCostlyMessage = 1
)

// Progress reporting constants
const (
	// ProgressInterval is the number of rounds summarized by each progress log line.
	ProgressInterval = 1000
)

// Statistics constants
const (
	// CIZScore is the normal quantile used for 95% confidence half-widths.
	CIZScore = 1.96
)

// Directory and file names
const (
	// StateDirName is the hidden directory under the output root that holds the
	// results index and trace log.
	StateDirName = ".compsig"

	// IndexFileName is the SQLite results index file name.
	IndexFileName = "results.db"

	// TraceFileName is the JSONL trace log file name.
	TraceFileName = "trace.jsonl"

	// SummaryFileName is the per-condition trial summary table.
	SummaryFileName = "all_trials.csv"

	// SnapshotFileName is the per-condition configuration snapshot.
	SnapshotFileName = "params.yaml"

	// DescriptivesFileName is the analysis output table under the output root.
	DescriptivesFileName = "descriptives.csv"
)
