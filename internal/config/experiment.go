package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/nvandessel/compsig/internal/constants"
	"gopkg.in/yaml.v3"
)

// requiredFields must be present in the merged base and condition mapping.
var requiredFields = []string{
	"num_trials", "num_preds", "num_strengths",
	"pos_reward", "neg_reward", "pred_cost", "m2cost",
	"strength_weights", "num_iters", "num_eval",
	"s1pred", "correct_id",
}

// optionalFields may be omitted; they keep their Default values.
var optionalFields = []string{"costly_msg", "seed"}

// Experiment is a named set of conditions, each written under its own output
// directory.
type Experiment struct {
	Name       string
	Conditions []Condition
}

// Condition pairs an output directory with its configuration. Err is set when
// the condition failed validation; such a condition must not be run, but the
// rest of the experiment is unaffected.
type Condition struct {
	Dir    string
	Config Configuration
	Err    error
}

// Valid returns the conditions that passed validation.
func (e *Experiment) Valid() []Condition {
	valid := make([]Condition, 0, len(e.Conditions))
	for _, c := range e.Conditions {
		if c.Err == nil {
			valid = append(valid, c)
		}
	}
	return valid
}

type experimentFile struct {
	Name       string               `yaml:"name"`
	Base       yaml.Node            `yaml:"base"`
	Conditions map[string]yaml.Node `yaml:"conditions"`
}

// LoadExperiment reads an experiment file.
//
// Format:
//
//	name: exp1
//	base:            # fields shared by every condition
//	  num_trials: 3
//	  ...
//	conditions:      # output directory -> field overrides
//	  exp1/s1pred-correct_id:
//	    s1pred: true
//	    correct_id: true
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file: %w", err)
	}
	return ParseExperiment(data)
}

// ParseExperiment parses experiment YAML. File-level problems are returned as
// errors; per-condition validation problems are recorded on the condition.
func ParseExperiment(data []byte) (*Experiment, error) {
	var file experimentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing experiment file: %w", err)
	}
	if len(file.Conditions) == 0 {
		return nil, fmt.Errorf("%w: experiment has no conditions", ErrInvalidConfig)
	}
	if file.Base.Kind != 0 && file.Base.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: base must be a mapping", ErrInvalidConfig)
	}

	dirs := make([]string, 0, len(file.Conditions))
	for dir := range file.Conditions {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	exp := &Experiment{Name: file.Name}
	for _, dir := range dirs {
		node := file.Conditions[dir]
		cfg, err := decodeCondition(&file.Base, &node)
		if err != nil {
			err = fmt.Errorf("condition %s: %w", dir, err)
		}
		exp.Conditions = append(exp.Conditions, Condition{Dir: dir, Config: cfg, Err: err})
	}
	return exp, nil
}

// decodeCondition merges base and overrides into one Configuration.
func decodeCondition(base, overrides *yaml.Node) (Configuration, error) {
	if overrides.Kind != 0 && overrides.Kind != yaml.MappingNode {
		return Configuration{}, fmt.Errorf("%w: condition must be a mapping", ErrInvalidConfig)
	}

	present := make(map[string]bool)
	for _, n := range []*yaml.Node{base, overrides} {
		for i := 0; i+1 < len(n.Content); i += 2 {
			present[n.Content[i].Value] = true
		}
	}

	known := make(map[string]bool)
	for _, f := range append(append([]string(nil), requiredFields...), optionalFields...) {
		known[f] = true
	}
	for key := range present {
		if !known[key] {
			return Configuration{}, fmt.Errorf("%w: unknown field %q", ErrInvalidConfig, key)
		}
	}
	var missing []string
	for _, f := range requiredFields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Configuration{}, fmt.Errorf("%w: missing required fields %v", ErrInvalidConfig, missing)
	}

	cfg := Configuration{
		CostlyMessage: constants.DefaultCostlyMessage,
		Seed:          Default().Seed,
	}
	if base.Kind == yaml.MappingNode {
		if err := base.Decode(&cfg); err != nil {
			return Configuration{}, fmt.Errorf("%w: decoding base: %w", ErrInvalidConfig, err)
		}
	}
	if overrides.Kind == yaml.MappingNode {
		if err := overrides.Decode(&cfg); err != nil {
			return Configuration{}, fmt.Errorf("%w: decoding overrides: %w", ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// MarshalSnapshot encodes a configuration as the YAML written alongside a
// condition's results.
func MarshalSnapshot(cfg Configuration) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// UnmarshalSnapshot decodes a configuration snapshot.
func UnmarshalSnapshot(data []byte) (Configuration, error) {
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("parsing configuration snapshot: %w", err)
	}
	return cfg, nil
}
