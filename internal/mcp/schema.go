package mcp

import (
	"time"

	"github.com/nvandessel/vacuumsim/internal/simulation"
)

// VacuumRunInput defines the input for the vacuum_run tool. Zero values fall
// back to the server's configured defaults.
type VacuumRunInput struct {
	Policy          string  `json:"policy" jsonschema:"Agent policy to run: reactive or memory"`
	Size            int     `json:"size,omitempty" jsonschema:"Grid side length in cells"`
	DirtProbability float64 `json:"dirt_probability,omitempty" jsonschema:"Probability that each cell starts dirty, between 0 and 1"`
	StepBudget      int     `json:"step_budget,omitempty" jsonschema:"Maximum number of agent steps"`
	Seed            uint64  `json:"seed,omitempty" jsonschema:"Random seed for a reproducible run; omitted picks one"`
	Save            bool    `json:"save,omitempty" jsonschema:"Store the result in the history ledger"`
	ChartFile       string  `json:"chart_file,omitempty" jsonschema:"Write the efficiency and dirt-remaining line chart to this HTML file inside the server's chart directory"`
}

// VacuumRunOutput defines the output for the vacuum_run tool.
type VacuumRunOutput struct {
	RunID     string            `json:"run_id,omitempty" jsonschema:"History ID when the run was saved"`
	Result    simulation.Result `json:"result" jsonschema:"Final statistics and outcome of the run"`
	Summary   string            `json:"summary" jsonschema:"Human-readable summary"`
	ChartPath string            `json:"chart_path,omitempty" jsonschema:"Absolute path of the written chart"`
}

// VacuumCompareInput defines the input for the vacuum_compare tool.
type VacuumCompareInput struct {
	Size            int     `json:"size,omitempty" jsonschema:"Grid side length in cells"`
	DirtProbability float64 `json:"dirt_probability,omitempty" jsonschema:"Probability that each cell starts dirty, between 0 and 1"`
	StepBudget      int     `json:"step_budget,omitempty" jsonschema:"Maximum number of agent steps per trial"`
	Trials          int     `json:"trials,omitempty" jsonschema:"Independent trials per policy"`
	Seed            uint64  `json:"seed,omitempty" jsonschema:"Base seed for a reproducible comparison; omitted picks one"`
	Save            bool    `json:"save,omitempty" jsonschema:"Store the comparison in the history ledger"`
	ChartFile       string  `json:"chart_file,omitempty" jsonschema:"Write the Average Performance Comparison bar chart to this HTML file inside the server's chart directory"`
}

// PolicyMeans is the per-policy part of a comparison, without trial detail.
type PolicyMeans struct {
	Policy          string  `json:"policy"`
	Trials          int     `json:"trials"`
	MeanMoves       float64 `json:"mean_moves"`
	MeanCleaned     float64 `json:"mean_cleaned"`
	MeanEfficiency  float64 `json:"mean_efficiency"`
	MeanInitialDirt float64 `json:"mean_initial_dirt"`
	ConvergenceRate float64 `json:"convergence_rate"`
}

// VacuumCompareOutput defines the output for the vacuum_compare tool.
type VacuumCompareOutput struct {
	ComparisonID string            `json:"comparison_id,omitempty" jsonschema:"History ID when the comparison was saved"`
	Config       simulation.Config `json:"config" jsonschema:"Effective configuration including the resolved seed"`
	Policies     []PolicyMeans     `json:"policies" jsonschema:"Per-policy averages"`
	Report       string            `json:"report" jsonschema:"Console report of the averages"`
	ChartPath    string            `json:"chart_path,omitempty" jsonschema:"Absolute path of the written chart"`
}

// VacuumHistoryInput defines the input for the vacuum_history tool.
type VacuumHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries of each kind to return (default 10)"`
}

// HistoryComparison is a saved comparison as listed by vacuum_history.
type HistoryComparison struct {
	ID        string        `json:"id"`
	Seed      uint64        `json:"seed"`
	Size      int           `json:"size"`
	Trials    int           `json:"trials"`
	CreatedAt time.Time     `json:"created_at"`
	Policies  []PolicyMeans `json:"policies"`
}

// HistoryRun is a saved standalone run as listed by vacuum_history.
type HistoryRun struct {
	ID         string    `json:"id"`
	Policy     string    `json:"policy"`
	Seed       uint64    `json:"seed"`
	Size       int       `json:"size"`
	Moves      int       `json:"moves"`
	Cleaned    int       `json:"cleaned"`
	Efficiency float64   `json:"efficiency"`
	Outcome    string    `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}

// VacuumHistoryOutput defines the output for the vacuum_history tool.
type VacuumHistoryOutput struct {
	Comparisons []HistoryComparison `json:"comparisons" jsonschema:"Most recent saved comparisons"`
	Runs        []HistoryRun        `json:"runs" jsonschema:"Most recent saved standalone runs"`
}
