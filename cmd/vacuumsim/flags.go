package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/vacuumsim/internal/simulation"
)

// addWorldFlags registers the grid and budget flags shared by run and compare.
func addWorldFlags(cmd *cobra.Command) {
	cmd.Flags().Int("size", 0, "Grid side length N (default from config)")
	cmd.Flags().Float64("dirt-probability", 0, "Chance of each cell starting dirty, 0 to 1 (default from config)")
	cmd.Flags().Int("step-budget", 0, "Maximum actions per run (default from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed; 0 picks one (default from config)")
}

// applyWorldFlags overlays explicitly set flags onto sim.
func applyWorldFlags(cmd *cobra.Command, sim *simulation.Config) {
	flags := cmd.Flags()
	if flags.Changed("size") {
		sim.Size, _ = flags.GetInt("size")
	}
	if flags.Changed("dirt-probability") {
		sim.DirtProbability, _ = flags.GetFloat64("dirt-probability")
	}
	if flags.Changed("step-budget") {
		sim.StepBudget, _ = flags.GetInt("step-budget")
	}
	if flags.Changed("seed") {
		sim.Seed, _ = flags.GetUint64("seed")
	}
}
