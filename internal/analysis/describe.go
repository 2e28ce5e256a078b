package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/nvandessel/compsig/internal/constants"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Measures summarized by Describe.
const (
	MeasureCorrect    = "correct"
	MeasureReward     = "reward"
	MeasureNontrivial = "nontrivial"
)

// Stats are descriptive statistics of one measure within one group.
// Std is the sample standard deviation; CI is the 95% half-width.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	CI    float64 `json:"ci"`
}

// Group is one condition directory with its grouping variables.
type Group struct {
	Dir       string           `json:"dir"`
	S1Pred    bool             `json:"s1pred"`
	CorrectID bool             `json:"correct_id"`
	Measures  map[string]Stats `json:"measures"`
}

// Describe groups rows by directory and the (s1pred, correct_id) grouping
// variables and summarizes each measure. Rows without a score are left out
// of the nontrivial statistics.
func Describe(rows []Row) []Group {
	type key struct {
		dir               string
		s1pred, correctID bool
	}
	samples := map[key]map[string][]float64{}
	var keys []key

	for _, r := range rows {
		k := key{r.Dir, r.Config.Sender1SeesPredicate, r.Config.CorrectID}
		m, ok := samples[k]
		if !ok {
			m = map[string][]float64{}
			samples[k] = m
			keys = append(keys, k)
		}
		m[MeasureCorrect] = append(m[MeasureCorrect], r.Correct)
		m[MeasureReward] = append(m[MeasureReward], r.Reward)
		if r.Nontrivial != nil {
			m[MeasureNontrivial] = append(m[MeasureNontrivial], float64(*r.Nontrivial))
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].dir != keys[j].dir {
			return keys[i].dir < keys[j].dir
		}
		if keys[i].s1pred != keys[j].s1pred {
			return !keys[i].s1pred
		}
		return !keys[i].correctID && keys[j].correctID
	})

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		g := Group{Dir: k.dir, S1Pred: k.s1pred, CorrectID: k.correctID, Measures: map[string]Stats{}}
		for name, xs := range samples[k] {
			g.Measures[name] = Summarize(xs)
		}
		groups = append(groups, g)
	}
	return groups
}

// Summarize computes descriptive statistics of xs. A single observation has
// zero spread.
func Summarize(xs []float64) Stats {
	if len(xs) == 0 {
		return Stats{}
	}
	s := Stats{
		Count: len(xs),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
	}
	if len(xs) == 1 {
		s.Mean = xs[0]
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(xs, nil)
	s.CI = constants.CIZScore * s.Std / math.Sqrt(float64(s.Count))
	return s
}

// DescriptivesHeader is the column layout of the descriptives table.
var DescriptivesHeader = []string{"dir", "s1pred", "correct_id", "measure", "count", "mean", "std", "min", "max", "ci"}

// WriteDescriptives writes groups as CSV, one row per group and measure.
func WriteDescriptives(w io.Writer, groups []Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DescriptivesHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, g := range groups {
		for _, name := range []string{MeasureCorrect, MeasureReward, MeasureNontrivial} {
			s, ok := g.Measures[name]
			if !ok {
				continue
			}
			row := []string{
				g.Dir,
				strconv.FormatBool(g.S1Pred),
				strconv.FormatBool(g.CorrectID),
				name,
				strconv.Itoa(s.Count),
				formatFloat(s.Mean),
				formatFloat(s.Std),
				formatFloat(s.Min),
				formatFloat(s.Max),
				formatFloat(s.CI),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteDescriptivesFile writes groups to descriptives.csv under root and
// returns the file path.
func WriteDescriptivesFile(root string, groups []Group) (string, error) {
	path := filepath.Join(root, constants.DescriptivesFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating descriptives table: %w", err)
	}
	if err := WriteDescriptives(f, groups); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
