package store

import "github.com/nvandessel/vacuumsim/internal/simulation"

// RunFromResult converts a finished run into a record. ID and CreatedAt are
// left for the store to assign.
func RunFromResult(cfg simulation.Config, res simulation.Result) RunRecord {
	return RunRecord{
		Policy:          string(res.Policy),
		Seed:            res.Seed,
		Size:            res.Size,
		DirtProbability: cfg.DirtProbability,
		StepBudget:      cfg.StepBudget,
		Moves:           res.Stats.Moves,
		Cleaned:         res.Stats.Cleaned,
		Efficiency:      res.Stats.Efficiency,
		InitialDirt:     res.InitialDirt,
		RemainingDirt:   res.RemainingDirt,
		Steps:           res.Steps,
		Outcome:         string(res.Outcome),
	}
}

// ComparisonFromResult converts a comparison into a record plus the records
// of every trial run.
func ComparisonFromResult(cmp simulation.Comparison) (ComparisonRecord, []RunRecord) {
	rec := ComparisonRecord{
		Seed:            cmp.Seed,
		Size:            cmp.Config.Size,
		DirtProbability: cmp.Config.DirtProbability,
		StepBudget:      cmp.Config.StepBudget,
		Trials:          cmp.Config.Trials,
		Parallelism:     cmp.Config.Parallelism,
	}
	var runs []RunRecord
	for _, p := range cmp.Policies {
		rec.Summaries = append(rec.Summaries, SummaryRecord{
			Policy:          string(p.Policy),
			Trials:          p.Trials,
			MeanMoves:       p.MeanMoves,
			MeanCleaned:     p.MeanCleaned,
			MeanEfficiency:  p.MeanEfficiency,
			MeanInitialDirt: p.MeanInitialDirt,
			ConvergenceRate: p.ConvergenceRate,
		})
		for _, res := range p.Results {
			runs = append(runs, RunFromResult(cmp.Config, res))
		}
	}
	return rec, runs
}
