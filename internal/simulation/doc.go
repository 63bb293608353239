// Package simulation drives cleaning agents through grid environments and
// aggregates their performance.
//
// A Runner owns the step loop. Each step it checks for convergence (no dirt
// left), otherwise asks the agent to act, and stops once the step budget is
// spent. The runner's step counter and the agent's move count advance in
// lockstep, so a run ends either CONVERGED within the budget or
// BUDGET_EXHAUSTED after exactly StepBudget steps.
//
// Every run is seeded. The same seed reproduces the same environment and the
// same sequence of decisions, which makes runs replayable from their Result.
//
// Usage:
//
//	r, err := simulation.NewRunner(simulation.DefaultConfig(),
//	    simulation.WithObserver(func(f simulation.Frame) { render(f) }))
//	if err != nil {
//	    return err
//	}
//	res, err := r.Run(ctx, agent.KindMemory, 42)
//
//	cmp, err := r.Compare(ctx) // Trials runs per policy
package simulation
