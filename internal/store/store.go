// Package store persists simulation runs and comparisons.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// RunRecord is one saved run. ComparisonID is empty for standalone runs.
type RunRecord struct {
	ID              string    `json:"id"`
	ComparisonID    string    `json:"comparison_id,omitempty"`
	Policy          string    `json:"policy"`
	Seed            uint64    `json:"seed"`
	Size            int       `json:"size"`
	DirtProbability float64   `json:"dirt_probability"`
	StepBudget      int       `json:"step_budget"`
	Moves           int       `json:"moves"`
	Cleaned         int       `json:"cleaned"`
	Efficiency      float64   `json:"efficiency"`
	InitialDirt     int       `json:"initial_dirt"`
	RemainingDirt   int       `json:"remaining_dirt"`
	Steps           int       `json:"steps"`
	Outcome         string    `json:"outcome"`
	CreatedAt       time.Time `json:"created_at"`
}

// SummaryRecord holds the per-policy means of a saved comparison.
type SummaryRecord struct {
	Policy          string  `json:"policy"`
	Trials          int     `json:"trials"`
	MeanMoves       float64 `json:"mean_moves"`
	MeanCleaned     float64 `json:"mean_cleaned"`
	MeanEfficiency  float64 `json:"mean_efficiency"`
	MeanInitialDirt float64 `json:"mean_initial_dirt"`
	ConvergenceRate float64 `json:"convergence_rate"`
}

// ComparisonRecord is one saved multi-trial comparison.
type ComparisonRecord struct {
	ID              string          `json:"id"`
	Seed            uint64          `json:"seed"`
	Size            int             `json:"size"`
	DirtProbability float64         `json:"dirt_probability"`
	StepBudget      int             `json:"step_budget"`
	Trials          int             `json:"trials"`
	Parallelism     int             `json:"parallelism"`
	Summaries       []SummaryRecord `json:"summaries"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RunFilter selects runs for ListRuns. An empty ComparisonID selects
// standalone runs only. Limit <= 0 means no limit.
type RunFilter struct {
	Policy       string
	ComparisonID string
	Limit        int
}

// ResultStore is the history ledger. Listings are newest first.
type ResultStore interface {
	// SaveRun stores a standalone run and returns its ID. A missing ID is
	// generated.
	SaveRun(ctx context.Context, run RunRecord) (string, error)

	// SaveComparison stores a comparison together with its trial runs.
	// Either everything is stored or nothing is.
	SaveComparison(ctx context.Context, c ComparisonRecord, runs []RunRecord) (string, error)

	GetComparison(ctx context.Context, id string) (*ComparisonRecord, error)
	ListComparisons(ctx context.Context, limit int) ([]ComparisonRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)

	Close() error
}
