package simulation

import "testing"

// AssertRunInvariants checks the properties every finished run must satisfy
// under cfg: counters within bounds, lockstep steps, and a terminal outcome
// consistent with the remaining dirt.
func AssertRunInvariants(t *testing.T, cfg Config, res Result) {
	t.Helper()

	if res.Stats.Moves > cfg.StepBudget {
		t.Errorf("%s seed %d: moves %d exceed step budget %d", res.Policy, res.Seed, res.Stats.Moves, cfg.StepBudget)
	}
	if res.Stats.Cleaned > res.InitialDirt {
		t.Errorf("%s seed %d: cleaned %d exceeds initial dirt %d", res.Policy, res.Seed, res.Stats.Cleaned, res.InitialDirt)
	}
	if res.Steps != res.Stats.Moves {
		t.Errorf("%s seed %d: runner steps %d != agent moves %d", res.Policy, res.Seed, res.Steps, res.Stats.Moves)
	}
	if res.InitialDirt-res.Stats.Cleaned != res.RemainingDirt {
		t.Errorf("%s seed %d: initial %d - cleaned %d != remaining %d",
			res.Policy, res.Seed, res.InitialDirt, res.Stats.Cleaned, res.RemainingDirt)
	}

	switch res.Outcome {
	case OutcomeConverged:
		if res.RemainingDirt != 0 {
			t.Errorf("%s seed %d: converged with %d dirt left", res.Policy, res.Seed, res.RemainingDirt)
		}
	case OutcomeBudgetExhausted:
		if res.Stats.Moves != cfg.StepBudget {
			t.Errorf("%s seed %d: budget exhausted after %d moves, budget %d", res.Policy, res.Seed, res.Stats.Moves, cfg.StepBudget)
		}
		if res.RemainingDirt == 0 {
			t.Errorf("%s seed %d: budget exhausted with no dirt left", res.Policy, res.Seed)
		}
	default:
		t.Errorf("%s seed %d: non-terminal outcome %q", res.Policy, res.Seed, res.Outcome)
	}
}

// AssertComparisonInvariants applies AssertRunInvariants to every trial and
// checks the trial counts.
func AssertComparisonInvariants(t *testing.T, cmp Comparison) {
	t.Helper()
	for _, p := range cmp.Policies {
		if p.Trials != cmp.Config.Trials || len(p.Results) != cmp.Config.Trials {
			t.Errorf("%s: %d trials (%d results), want %d", p.Policy, p.Trials, len(p.Results), cmp.Config.Trials)
		}
		for _, res := range p.Results {
			if res.Policy != p.Policy {
				t.Errorf("%s summary holds a %s result", p.Policy, res.Policy)
			}
			AssertRunInvariants(t, cmp.Config, res)
		}
	}
}
