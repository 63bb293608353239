package simulation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/vacuumsim/internal/agent"
)

// PolicySummary aggregates the trials of one policy.
type PolicySummary struct {
	Policy          agent.Kind `json:"policy"`
	Trials          int        `json:"trials"`
	MeanMoves       float64    `json:"mean_moves"`
	MeanCleaned     float64    `json:"mean_cleaned"`
	MeanEfficiency  float64    `json:"mean_efficiency"`
	MeanInitialDirt float64    `json:"mean_initial_dirt"`
	ConvergenceRate float64    `json:"convergence_rate"`
	Results         []Result   `json:"results,omitempty"`
}

// Comparison is the outcome of running every policy Trials times.
type Comparison struct {
	Config   Config          `json:"config"`
	Seed     uint64          `json:"seed"`
	Policies []PolicySummary `json:"policies"`
}

// Summary returns the aggregate for kind.
func (c Comparison) Summary(kind agent.Kind) (PolicySummary, bool) {
	for _, p := range c.Policies {
		if p.Policy == kind {
			return p, true
		}
	}
	return PolicySummary{}, false
}

// Compare runs Trials independent trials for each policy and reports
// per-policy means. Each trial samples its own environment from a seed
// derived from the comparison seed, so results are identical regardless of
// Parallelism.
func (r *Runner) Compare(ctx context.Context) (Comparison, error) {
	seed := ResolveSeed(r.cfg.Seed)
	kinds := agent.Kinds()

	results := make([][]Result, len(kinds))
	for i := range results {
		results[i] = make([]Result, r.cfg.Trials)
	}

	r.logger.Info("comparison started",
		"trials", r.cfg.Trials,
		"size", r.cfg.Size,
		"step_budget", r.cfg.StepBudget,
		"parallelism", r.cfg.Parallelism,
		"seed", seed)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for pi, kind := range kinds {
		for trial := 0; trial < r.cfg.Trials; trial++ {
			g.Go(func() error {
				var runID string
				if r.runID != "" {
					runID = fmt.Sprintf("%s-%s-%d", r.runID, kind, trial)
				}
				res, err := r.run(gctx, kind, TrialSeed(seed, pi, trial), runID, nil)
				if err != nil {
					return fmt.Errorf("%s trial %d: %w", kind, trial, err)
				}
				results[pi][trial] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	cmp := Comparison{Config: r.cfg, Seed: seed}
	cmp.Config.Seed = seed
	for pi, kind := range kinds {
		summary := Summarize(kind, results[pi])
		r.logger.Info("policy summary",
			"policy", kind,
			"mean_moves", summary.MeanMoves,
			"mean_efficiency", summary.MeanEfficiency,
			"convergence_rate", summary.ConvergenceRate)
		cmp.Policies = append(cmp.Policies, summary)
	}
	return cmp, nil
}

// Summarize computes arithmetic means over results.
func Summarize(kind agent.Kind, results []Result) PolicySummary {
	s := PolicySummary{Policy: kind, Trials: len(results), Results: results}
	if len(results) == 0 {
		return s
	}

	var moves, cleaned, eff, dirt, converged float64
	for _, res := range results {
		moves += float64(res.Stats.Moves)
		cleaned += float64(res.Stats.Cleaned)
		eff += res.Stats.Efficiency
		dirt += float64(res.InitialDirt)
		if res.Outcome == OutcomeConverged {
			converged++
		}
	}
	n := float64(len(results))
	s.MeanMoves = moves / n
	s.MeanCleaned = cleaned / n
	s.MeanEfficiency = eff / n
	s.MeanInitialDirt = dirt / n
	s.ConvergenceRate = converged / n
	return s
}
