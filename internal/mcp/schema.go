package mcp

import "github.com/nvandessel/compsig/internal/analysis"

// ValidateInput defines the input for the compsig_validate tool.
type ValidateInput struct {
	Experiment string `json:"experiment" jsonschema:"Path to an experiment YAML file, relative to the output root"`
}

// ValidateOutput defines the output for the compsig_validate tool.
type ValidateOutput struct {
	Name       string            `json:"name" jsonschema:"Experiment name"`
	Conditions []ConditionStatus `json:"conditions" jsonschema:"Validation result per condition"`
	Valid      int               `json:"valid" jsonschema:"Number of conditions that passed validation"`
	Invalid    int               `json:"invalid" jsonschema:"Number of conditions that failed validation"`
}

// ConditionStatus reports whether one condition can be run.
type ConditionStatus struct {
	Dir       string `json:"dir"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
	NumStates int    `json:"num_states,omitempty"`
	Hash      string `json:"hash,omitempty"`
}

// ResultsInput defines the input for the compsig_results tool.
type ResultsInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Run id to summarize (default: the latest run)"`
	Dir   string `json:"dir,omitempty" jsonschema:"Restrict to one condition directory"`
}

// ResultsOutput defines the output for the compsig_results tool.
type ResultsOutput struct {
	RunID  string           `json:"run_id" jsonschema:"Run the statistics were computed for"`
	Trials int              `json:"trials" jsonschema:"Number of trials included"`
	Groups []analysis.Group `json:"groups" jsonschema:"Descriptive statistics per condition"`
}

// ClassifyInput defines the input for the compsig_classify tool.
type ClassifyInput struct {
	Dir       string  `json:"dir" jsonschema:"Condition directory, relative to the output root"`
	Trial     int     `json:"trial" jsonschema:"Trial index"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Commit probability threshold in (0, 1) (default: configured threshold)"`
}

// ClassifyOutput defines the output for the compsig_classify tool.
type ClassifyOutput struct {
	Dir         string `json:"dir"`
	Trial       int    `json:"trial"`
	Score       int    `json:"score" jsonschema:"Number of states whose second message depends on the first message"`
	Conditioned []int  `json:"conditioned" jsonschema:"Ids of the conditioned states"`
	NumStates   int    `json:"num_states"`
}
