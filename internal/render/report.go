package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/vacuumsim/internal/simulation"
)

const ruleWidth = 60

// Report prints the per-policy averages behind the comparison chart.
func Report(w io.Writer, cmp simulation.Comparison) error {
	rule := strings.Repeat("=", ruleWidth)
	cfg := cmp.Config

	var b strings.Builder
	fmt.Fprintf(&b, "Compared %d trials per policy on a %dx%d grid (dirt p=%.2f, budget %d, seed %d)\n",
		cfg.Trials, cfg.Size, cfg.Size, cfg.DirtProbability, cfg.StepBudget, cmp.Seed)
	fmt.Fprintf(&b, "\n%s\nNUMBERS USED FOR THE BAR CHART\n%s\n", rule, rule)
	for _, p := range cmp.Policies {
		fmt.Fprintf(&b, "%s Agent: Avg Moves = %.1f, Avg Efficiency = %s\n",
			p.Policy.Label(), p.MeanMoves, Percent(p.MeanEfficiency))
	}
	b.WriteString(rule + "\n")
	for _, p := range cmp.Policies {
		fmt.Fprintf(&b, "%s Agent: Avg Cleaned = %.1f of %.1f, Converged = %s\n",
			p.Policy.Label(), p.MeanCleaned, p.MeanInitialDirt, Percent(p.ConvergenceRate))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
