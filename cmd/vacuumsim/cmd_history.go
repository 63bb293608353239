package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/render"
	"github.com/nvandessel/vacuumsim/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved runs and comparisons",
		Long: `List results recorded with --save, newest first.

History lives in ~/.vacuumsim/history.db unless history.path is set.

Examples:
  vacuumsim history
  vacuumsim history --limit 5 --policy memory
  vacuumsim history --comparison <id>`,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 10, "Maximum entries per section")
	cmd.Flags().String("policy", "", "Only show runs of this policy")
	cmd.Flags().String("comparison", "", "Show one comparison and its trial runs")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")
	policy, _ := cmd.Flags().GetString("policy")
	comparisonID, _ := cmd.Flags().GetString("comparison")

	if policy != "" {
		kind, err := agent.ParseKind(policy)
		if err != nil {
			return err
		}
		policy = string(kind)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if comparisonID != "" {
		c, err := history.GetComparison(ctx, comparisonID)
		if err != nil {
			return fmt.Errorf("failed to load comparison %s: %w", comparisonID, err)
		}
		trials, err := history.ListRuns(ctx, store.RunFilter{ComparisonID: comparisonID, Policy: policy, Limit: limit})
		if err != nil {
			return fmt.Errorf("failed to list trial runs: %w", err)
		}
		if jsonOut {
			return writeJSON(out, map[string]interface{}{
				"comparison": c,
				"runs":       trials,
			})
		}
		printComparison(cmd, *c)
		fmt.Fprintln(out)
		printRuns(cmd, trials)
		return nil
	}

	comparisons, err := history.ListComparisons(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list comparisons: %w", err)
	}
	runs, err := history.ListRuns(ctx, store.RunFilter{Policy: policy, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOut {
		return writeJSON(out, map[string]interface{}{
			"comparisons": comparisons,
			"runs":        runs,
		})
	}

	if len(comparisons) == 0 && len(runs) == 0 {
		fmt.Fprintln(out, "No saved history. Use --save with run or compare to record results.")
		return nil
	}

	fmt.Fprintf(out, "Comparisons (%d):\n", len(comparisons))
	for _, c := range comparisons {
		printComparison(cmd, c)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Runs (%d):\n", len(runs))
	printRuns(cmd, runs)
	return nil
}

func printComparison(cmd *cobra.Command, c store.ComparisonRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  %s  %s  %dx%d p=%.2f budget=%d trials=%d seed=%d\n",
		c.ID, humanize.Time(c.CreatedAt), c.Size, c.Size, c.DirtProbability, c.StepBudget, c.Trials, c.Seed)
	for _, s := range c.Summaries {
		fmt.Fprintf(out, "      %-18s avg moves %.1f  avg efficiency %s  converged %s\n",
			policyLabel(s.Policy), s.MeanMoves, render.Percent(s.MeanEfficiency), render.Percent(s.ConvergenceRate))
	}
}

func printRuns(cmd *cobra.Command, runs []store.RunRecord) {
	out := cmd.OutOrStdout()
	for _, r := range runs {
		fmt.Fprintf(out, "  %s  %-14s %-18s %dx%d moves=%d cleaned=%d/%d efficiency=%s %s seed=%d\n",
			r.ID, humanize.Time(r.CreatedAt), policyLabel(r.Policy), r.Size, r.Size,
			r.Moves, r.Cleaned, r.InitialDirt, render.Percent(r.Efficiency), r.Outcome, r.Seed)
	}
}

func policyLabel(policy string) string {
	if kind, err := agent.ParseKind(policy); err == nil {
		return kind.Label()
	}
	return policy
}
