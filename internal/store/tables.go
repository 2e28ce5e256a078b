package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nvandessel/compsig/internal/game"
)

// EvalHeader is the column layout of a trial's evaluation table.
var EvalHeader = []string{"predicate", "state", "msg1", "msg2", "guessed_state", "correct", "reward"}

// SummaryHeader is the column layout of a condition's trial summary table.
var SummaryHeader = []string{"correct", "reward", "trial"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// WriteEvalRecords writes evaluation records as CSV, one row per round.
func WriteEvalRecords(w io.Writer, records []game.EvalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EvalHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Predicate),
			strconv.Itoa(r.State),
			strconv.Itoa(r.Msg1),
			strconv.Itoa(r.Msg2),
			strconv.Itoa(r.Guess),
			formatBool(r.Correct),
			formatFloat(r.Reward),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadEvalRecords parses a table written by WriteEvalRecords.
func ReadEvalRecords(r io.Reader) ([]game.EvalRecord, error) {
	rows, err := readTable(r, EvalHeader)
	if err != nil {
		return nil, err
	}
	records := make([]game.EvalRecord, 0, len(rows))
	for n, row := range rows {
		var ints [5]int
		for i := range ints {
			if ints[i], err = strconv.Atoi(row[i]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+1, EvalHeader[i], err)
			}
		}
		reward, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column reward: %w", n+1, err)
		}
		records = append(records, game.EvalRecord{
			Predicate: ints[0],
			State:     ints[1],
			Msg1:      ints[2],
			Msg2:      ints[3],
			Guess:     ints[4],
			Correct:   row[5] == "1",
			Reward:    reward,
		})
	}
	return records, nil
}

// WriteSummaries writes per-trial summaries as CSV.
func WriteSummaries(w io.Writer, summaries []game.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, s := range summaries {
		if err := cw.Write([]string{formatFloat(s.Correct), formatFloat(s.Reward), strconv.Itoa(s.Trial)}); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSummaries parses a table written by WriteSummaries.
func ReadSummaries(r io.Reader) ([]game.Summary, error) {
	rows, err := readTable(r, SummaryHeader)
	if err != nil {
		return nil, err
	}
	summaries := make([]game.Summary, 0, len(rows))
	for n, row := range rows {
		correct, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column correct: %w", n+1, err)
		}
		reward, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column reward: %w", n+1, err)
		}
		trial, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d column trial: %w", n+1, err)
		}
		summaries = append(summaries, game.Summary{Trial: trial, Correct: correct, Reward: reward})
	}
	return summaries, nil
}

// readTable reads a CSV table and checks its header.
func readTable(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv is empty")
	}
	for i, col := range header {
		if rows[0][i] != col {
			return nil, fmt.Errorf("csv header column %d is %q, want %q", i, rows[0][i], col)
		}
	}
	return rows[1:], nil
}

// writeFile creates path and fills it with fn.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
