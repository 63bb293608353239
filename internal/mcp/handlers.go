package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/pathutil"
	"github.com/nvandessel/vacuumsim/internal/render"
	"github.com/nvandessel/vacuumsim/internal/simulation"
	"github.com/nvandessel/vacuumsim/internal/store"
)

// Upper bounds on tool arguments. A single call must stay cheap.
const (
	maxSize       = 64
	maxStepBudget = 100_000
	maxTrials     = 1_000

	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

var (
	// errNoHistory is returned when saving or listing without a store.
	errNoHistory = errors.New("history is not configured for this server")
	// errNoCharts is returned for chart_file without a chart directory.
	errNoCharts = errors.New("charts are not enabled for this server")
)

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolRun,
		Description: "Run one vacuum-cleaner agent (reactive or memory) on a random dirty grid and report moves, cells cleaned, efficiency and outcome",
	}, s.handleVacuumRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolCompare,
		Description: "Run repeated independent trials of both agent policies and report average moves, efficiency and convergence rate per policy",
	}, s.handleVacuumCompare)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolHistory,
		Description: "List recently saved runs and comparisons",
	}, s.handleVacuumHistory)
}

func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         historyResourceURI,
		Name:        "vacuumsim-history",
		Description: "Recently saved comparisons between the reactive and memory-augmented vacuum agents.",
		MIMEType:    "text/markdown",
	}, s.handleHistoryResource)
}

// overlay applies non-zero tool arguments over the server defaults and
// checks the result.
func (s *Server) overlay(size int, p float64, budget, trials int, seed uint64) (simulation.Config, error) {
	cfg := s.sim
	if size != 0 {
		cfg.Size = size
	}
	if p != 0 {
		cfg.DirtProbability = p
	}
	if budget != 0 {
		cfg.StepBudget = budget
	}
	if trials != 0 {
		cfg.Trials = trials
	}
	if seed != 0 {
		cfg.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	switch {
	case cfg.Size > maxSize:
		return cfg, fmt.Errorf("size %d exceeds the maximum of %d", cfg.Size, maxSize)
	case cfg.StepBudget > maxStepBudget:
		return cfg, fmt.Errorf("step_budget %d exceeds the maximum of %d", cfg.StepBudget, maxStepBudget)
	case cfg.Trials > maxTrials:
		return cfg, fmt.Errorf("trials %d exceeds the maximum of %d", cfg.Trials, maxTrials)
	}
	return cfg, nil
}

func (s *Server) handleVacuumRun(ctx context.Context, req *sdk.CallToolRequest, args VacuumRunInput) (_ *sdk.CallToolResult, _ VacuumRunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolRun, start, retErr, auditParams(map[string]interface{}{
			"policy": args.Policy, "size": args.Size, "dirt_probability": args.DirtProbability,
			"step_budget": args.StepBudget, "seed": args.Seed, "save": args.Save, "chart_file": args.ChartFile,
		}))
	}()

	if err := s.toolLimiters.checkLimit(toolRun); err != nil {
		return nil, VacuumRunOutput{}, err
	}

	kind, err := agent.ParseKind(args.Policy)
	if err != nil {
		return nil, VacuumRunOutput{}, err
	}
	cfg, err := s.overlay(args.Size, args.DirtProbability, args.StepBudget, 0, args.Seed)
	if err != nil {
		return nil, VacuumRunOutput{}, err
	}
	if args.Save && s.store == nil {
		return nil, VacuumRunOutput{}, errNoHistory
	}
	var chartPath string
	if args.ChartFile != "" {
		if chartPath, err = s.chartPath(args.ChartFile); err != nil {
			return nil, VacuumRunOutput{}, err
		}
	}

	var frames []simulation.Frame
	opts := []simulation.Option{simulation.WithLogger(s.logger)}
	if chartPath != "" {
		opts = append(opts, simulation.WithObserver(func(f simulation.Frame) { frames = append(frames, f) }))
	}
	runner, err := simulation.NewRunner(cfg, opts...)
	if err != nil {
		return nil, VacuumRunOutput{}, err
	}
	res, err := runner.Run(ctx, kind, simulation.ResolveSeed(cfg.Seed))
	if err != nil {
		return nil, VacuumRunOutput{}, fmt.Errorf("run failed: %w", err)
	}

	out := VacuumRunOutput{
		Result: res,
		Summary: fmt.Sprintf("%s agent %s after %d steps: cleaned %d/%d, efficiency %s, seed %d",
			kind.Label(), res.Outcome, res.Steps, res.Stats.Cleaned, res.InitialDirt,
			render.Percent(res.Stats.Efficiency), res.Seed),
	}
	if args.Save {
		id, err := s.store.SaveRun(ctx, store.RunFromResult(cfg, res))
		if err != nil {
			return nil, VacuumRunOutput{}, fmt.Errorf("saving run: %w", err)
		}
		out.RunID = id
	}
	if chartPath != "" {
		if err := writeChart(chartPath, func(w io.Writer) error {
			return render.WriteRunChart(w, kind, frames)
		}); err != nil {
			return nil, VacuumRunOutput{}, err
		}
		out.ChartPath = chartPath
	}
	return nil, out, nil
}

func (s *Server) handleVacuumCompare(ctx context.Context, req *sdk.CallToolRequest, args VacuumCompareInput) (_ *sdk.CallToolResult, _ VacuumCompareOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolCompare, start, retErr, auditParams(map[string]interface{}{
			"size": args.Size, "dirt_probability": args.DirtProbability, "step_budget": args.StepBudget,
			"trials": args.Trials, "seed": args.Seed, "save": args.Save, "chart_file": args.ChartFile,
		}))
	}()

	if err := s.toolLimiters.checkLimit(toolCompare); err != nil {
		return nil, VacuumCompareOutput{}, err
	}

	cfg, err := s.overlay(args.Size, args.DirtProbability, args.StepBudget, args.Trials, args.Seed)
	if err != nil {
		return nil, VacuumCompareOutput{}, err
	}
	if args.Save && s.store == nil {
		return nil, VacuumCompareOutput{}, errNoHistory
	}
	var chartPath string
	if args.ChartFile != "" {
		if chartPath, err = s.chartPath(args.ChartFile); err != nil {
			return nil, VacuumCompareOutput{}, err
		}
	}

	runner, err := simulation.NewRunner(cfg, simulation.WithLogger(s.logger))
	if err != nil {
		return nil, VacuumCompareOutput{}, err
	}
	cmp, err := runner.Compare(ctx)
	if err != nil {
		return nil, VacuumCompareOutput{}, fmt.Errorf("comparison failed: %w", err)
	}

	var report strings.Builder
	if err := render.Report(&report, cmp); err != nil {
		return nil, VacuumCompareOutput{}, err
	}

	out := VacuumCompareOutput{Config: cmp.Config, Report: report.String()}
	for _, p := range cmp.Policies {
		out.Policies = append(out.Policies, PolicyMeans{
			Policy:          string(p.Policy),
			Trials:          p.Trials,
			MeanMoves:       p.MeanMoves,
			MeanCleaned:     p.MeanCleaned,
			MeanEfficiency:  p.MeanEfficiency,
			MeanInitialDirt: p.MeanInitialDirt,
			ConvergenceRate: p.ConvergenceRate,
		})
	}

	if args.Save {
		rec, runs := store.ComparisonFromResult(cmp)
		id, err := s.store.SaveComparison(ctx, rec, runs)
		if err != nil {
			return nil, VacuumCompareOutput{}, fmt.Errorf("saving comparison: %w", err)
		}
		out.ComparisonID = id
	}
	if chartPath != "" {
		if err := writeChart(chartPath, func(w io.Writer) error {
			return render.WriteComparisonChart(w, cmp)
		}); err != nil {
			return nil, VacuumCompareOutput{}, err
		}
		out.ChartPath = chartPath
	}
	return nil, out, nil
}

func (s *Server) handleVacuumHistory(ctx context.Context, req *sdk.CallToolRequest, args VacuumHistoryInput) (_ *sdk.CallToolResult, _ VacuumHistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolHistory, start, retErr, auditParams(map[string]interface{}{"limit": args.Limit}))
	}()

	if err := s.toolLimiters.checkLimit(toolHistory); err != nil {
		return nil, VacuumHistoryOutput{}, err
	}
	if s.store == nil {
		return nil, VacuumHistoryOutput{}, errNoHistory
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	comparisons, err := s.store.ListComparisons(ctx, limit)
	if err != nil {
		return nil, VacuumHistoryOutput{}, fmt.Errorf("listing comparisons: %w", err)
	}
	runs, err := s.store.ListRuns(ctx, store.RunFilter{Limit: limit})
	if err != nil {
		return nil, VacuumHistoryOutput{}, fmt.Errorf("listing runs: %w", err)
	}

	out := VacuumHistoryOutput{
		Comparisons: make([]HistoryComparison, 0, len(comparisons)),
		Runs:        make([]HistoryRun, 0, len(runs)),
	}
	for _, c := range comparisons {
		out.Comparisons = append(out.Comparisons, historyComparison(c))
	}
	for _, r := range runs {
		out.Runs = append(out.Runs, HistoryRun{
			ID:         r.ID,
			Policy:     r.Policy,
			Seed:       r.Seed,
			Size:       r.Size,
			Moves:      r.Moves,
			Cleaned:    r.Cleaned,
			Efficiency: r.Efficiency,
			Outcome:    r.Outcome,
			CreatedAt:  r.CreatedAt,
		})
	}
	return nil, out, nil
}

// handleHistoryResource renders the latest comparisons as markdown.
func (s *Server) handleHistoryResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Vacuum Agent Comparisons\n\n")

	if s.store == nil {
		sb.WriteString("History is not configured. Start the server with a history database to record comparisons.\n")
		return markdownResource(sb.String()), nil
	}

	comparisons, err := s.store.ListComparisons(ctx, defaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	if len(comparisons) == 0 {
		sb.WriteString("No saved comparisons yet. Run `vacuum_compare` with `save: true` to record one.\n")
		return markdownResource(sb.String()), nil
	}

	sb.WriteString("| When | Grid | Trials | Policy | Avg Moves | Avg Efficiency | Converged |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, c := range comparisons {
		for _, p := range c.Summaries {
			label := p.Policy
			if kind, err := agent.ParseKind(p.Policy); err == nil {
				label = kind.Label()
			}
			fmt.Fprintf(&sb, "| %s | %dx%d | %d | %s | %.1f | %s | %s |\n",
				humanize.Time(c.CreatedAt), c.Size, c.Size, c.Trials, label,
				p.MeanMoves, render.Percent(p.MeanEfficiency), render.Percent(p.ConvergenceRate))
		}
	}
	return markdownResource(sb.String()), nil
}

func markdownResource(text string) *sdk.ReadResourceResult {
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      historyResourceURI,
				MIMEType: "text/markdown",
				Text:     text,
			},
		},
	}
}

func historyComparison(c store.ComparisonRecord) HistoryComparison {
	h := HistoryComparison{
		ID:        c.ID,
		Seed:      c.Seed,
		Size:      c.Size,
		Trials:    c.Trials,
		CreatedAt: c.CreatedAt,
		Policies:  make([]PolicyMeans, 0, len(c.Summaries)),
	}
	for _, p := range c.Summaries {
		h.Policies = append(h.Policies, PolicyMeans{
			Policy:          p.Policy,
			Trials:          p.Trials,
			MeanMoves:       p.MeanMoves,
			MeanCleaned:     p.MeanCleaned,
			MeanEfficiency:  p.MeanEfficiency,
			MeanInitialDirt: p.MeanInitialDirt,
			ConvergenceRate: p.ConvergenceRate,
		})
	}
	return h
}

// chartPath confines a chart_file argument to the chart directory.
func (s *Server) chartPath(name string) (string, error) {
	if s.chartDir == "" {
		return "", errNoCharts
	}
	if !strings.EqualFold(filepath.Ext(name), ".html") {
		return "", fmt.Errorf("chart_file %q must end in .html", name)
	}
	return pathutil.Within(s.chartDir, name)
}

func writeChart(path string, draw func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating chart directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating chart %s: %w", pathutil.Redact(path), err)
	}
	if err := draw(f); err != nil {
		f.Close()
		return fmt.Errorf("rendering chart: %w", err)
	}
	return f.Close()
}
