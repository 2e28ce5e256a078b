package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/compsig/internal/analysis"
	"github.com/nvandessel/compsig/internal/classify"
	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"
	"github.com/nvandessel/compsig/internal/pathutil"
	"github.com/nvandessel/compsig/internal/ratelimit"
	"github.com/nvandessel/compsig/internal/store"
)

// registerTools registers all compsig MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "compsig_validate",
		Description: "Validate an experiment file and report which conditions can run",
	}, s.handleValidate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "compsig_results",
		Description: "Descriptive statistics (count, mean, std, min, max, 95% CI) of indexed trial results per condition",
	}, s.handleResults)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "compsig_classify",
		Description: "Score a saved Sender2 policy for second messages conditioned on the first message",
	}, s.handleClassify)
}

// auditTool records a tool invocation in the trace log.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]any) {
	status := "success"
	fields := map[string]any{
		"tool":        tool,
		"duration_ms": time.Since(start).Milliseconds(),
		"params":      params,
	}
	if err != nil {
		status = "error"
		fields["error"] = err.Error()
	}
	fields["status"] = status
	s.trace.Log("tool_call", fields)
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (_ *sdk.CallToolResult, _ ValidateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("compsig_validate", start, retErr, map[string]any{"experiment": pathutil.RedactPath(args.Experiment)})
	}()

	if err := ratelimit.CheckLimit(s.limiters, "compsig_validate"); err != nil {
		return nil, ValidateOutput{}, err
	}

	path, err := pathutil.ResolveWithin(s.root, args.Experiment)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	exp, err := config.LoadExperiment(path)
	if err != nil {
		return nil, ValidateOutput{}, err
	}

	out := ValidateOutput{Name: exp.Name, Conditions: make([]ConditionStatus, 0, len(exp.Conditions))}
	for _, c := range exp.Conditions {
		status := ConditionStatus{Dir: c.Dir, Valid: c.Err == nil}
		if c.Err != nil {
			status.Error = c.Err.Error()
			out.Invalid++
		} else if hash, err := c.Config.Hash(); err != nil {
			status.Valid = false
			status.Error = err.Error()
			out.Invalid++
		} else {
			status.NumStates = c.Config.NumStates()
			status.Hash = hash
			out.Valid++
		}
		out.Conditions = append(out.Conditions, status)
	}
	return nil, out, nil
}

func (s *Server) handleResults(ctx context.Context, req *sdk.CallToolRequest, args ResultsInput) (_ *sdk.CallToolResult, _ ResultsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("compsig_results", start, retErr, map[string]any{"run_id": args.RunID, "dir": args.Dir})
	}()

	if err := ratelimit.CheckLimit(s.limiters, "compsig_results"); err != nil {
		return nil, ResultsOutput{}, err
	}

	runID := args.RunID
	if runID == "" {
		run, err := s.index.LatestRun(ctx)
		if errors.Is(err, store.ErrNoRuns) {
			return nil, ResultsOutput{Groups: []analysis.Group{}}, nil
		}
		if err != nil {
			return nil, ResultsOutput{}, err
		}
		runID = run.ID
	}

	rows, err := analysis.Gather(ctx, s.index, store.TrialFilter{RunID: runID, Dir: args.Dir})
	if err != nil {
		return nil, ResultsOutput{}, err
	}
	return nil, ResultsOutput{
		RunID:  runID,
		Trials: len(rows),
		Groups: analysis.Describe(rows),
	}, nil
}

func (s *Server) handleClassify(ctx context.Context, req *sdk.CallToolRequest, args ClassifyInput) (_ *sdk.CallToolResult, _ ClassifyOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("compsig_classify", start, retErr, map[string]any{
			"dir": pathutil.RedactPath(args.Dir), "trial": args.Trial, "threshold": args.Threshold,
		})
	}()

	if err := ratelimit.CheckLimit(s.limiters, "compsig_classify"); err != nil {
		return nil, ClassifyOutput{}, err
	}

	if args.Trial < 0 {
		return nil, ClassifyOutput{}, fmt.Errorf("trial must be >= 0, got %d", args.Trial)
	}
	dir, err := pathutil.ResolveWithin(s.root, args.Dir)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}
	threshold := args.Threshold
	if threshold == 0 {
		threshold = s.threshold
	}

	sender2, err := s.artifacts.ReadAgent(dir, args.Trial, game.Sender2Name)
	if err != nil {
		return nil, ClassifyOutput{}, fmt.Errorf("loading sender2 for trial %d: %w", args.Trial, err)
	}
	report, err := classify.Analyze(sender2, threshold)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	out := ClassifyOutput{
		Dir:         args.Dir,
		Trial:       args.Trial,
		Score:       report.Score,
		Conditioned: []int{},
		NumStates:   len(report.Conditioned),
	}
	for id, ok := range report.Conditioned {
		if ok {
			out.Conditioned = append(out.Conditioned, id)
		}
	}
	return nil, out, nil
}
