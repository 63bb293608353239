package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nvandessel/vacuumsim/internal/render"
	"github.com/nvandessel/vacuumsim/internal/simulation"
	"github.com/nvandessel/vacuumsim/internal/store"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the reactive and memory-augmented agents over many trials",
		Long: `Run independent seeded trials of both policies and report the averages
used for the comparison bar chart: moves, cells cleaned, efficiency and how
often each policy cleaned the whole grid within budget.

Examples:
  vacuumsim compare --trials 100 --seed 7
  vacuumsim compare --trials 50 --parallelism 8 --chart compare.html --open
  vacuumsim compare --serve
  vacuumsim compare --save --json`,
		RunE: runCompare,
	}

	cmd.Flags().Int("trials", 0, "Trials per policy (default from config)")
	cmd.Flags().Int("parallelism", 0, "Trials run at once; results do not depend on it (default from config)")
	cmd.Flags().String("chart", "", "Write the Average Performance Comparison bar chart to this HTML file")
	cmd.Flags().Bool("open", false, "Open the chart in the default browser")
	cmd.Flags().Bool("serve", false, "Serve the chart on localhost until interrupted")
	cmd.Flags().Bool("save", false, "Record the comparison in the history database")
	addWorldFlags(cmd)

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	chartPath, _ := cmd.Flags().GetString("chart")
	open, _ := cmd.Flags().GetBool("open")
	serve, _ := cmd.Flags().GetBool("serve")
	save, _ := cmd.Flags().GetBool("save")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sim := cfg.Simulation()
	applyWorldFlags(cmd, &sim)
	if cmd.Flags().Changed("trials") {
		sim.Trials, _ = cmd.Flags().GetInt("trials")
	}
	if cmd.Flags().Changed("parallelism") {
		sim.Parallelism, _ = cmd.Flags().GetInt("parallelism")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	decisions := newDecisionLogger(cfg)
	defer decisions.Close()

	runner, err := simulation.NewRunner(sim,
		simulation.WithLogger(newLogger(cmd, cfg)),
		simulation.WithDecisionLogger(decisions),
		simulation.WithRunID(uuid.NewString()),
	)
	if err != nil {
		return err
	}
	cmp, err := runner.Compare(ctx)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	var savedID string
	if save {
		history, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer history.Close()
		rec, runs := store.ComparisonFromResult(cmp)
		savedID, err = history.SaveComparison(ctx, rec, runs)
		if err != nil {
			return fmt.Errorf("failed to save comparison: %w", err)
		}
	}

	if chartPath != "" {
		if err := writeChartFile(chartPath, func(w io.Writer) error {
			return render.WriteComparisonChart(w, cmp)
		}); err != nil {
			return err
		}
	}

	if jsonOut {
		result := map[string]interface{}{"comparison": cmp}
		if savedID != "" {
			result["comparison_id"] = savedID
		}
		if chartPath != "" {
			result["chart"] = chartPath
		}
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		if err := render.Report(out, cmp); err != nil {
			return err
		}
		if savedID != "" {
			fmt.Fprintf(out, "\nSaved comparison %s\n", savedID)
		}
		if chartPath != "" {
			fmt.Fprintf(out, "Chart written to %s\n", chartPath)
		}
	}

	if chartPath != "" && open && !serve {
		if err := render.OpenFile(chartPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, chartPath)
		}
	}

	if serve {
		var page bytes.Buffer
		if err := render.WriteComparisonChart(&page, cmp); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		return serveChart(ctx, cmd, page.Bytes(), open)
	}
	return nil
}

// serveChart serves page on localhost and blocks until ctx is cancelled.
func serveChart(ctx context.Context, cmd *cobra.Command, page []byte, open bool) error {
	srv := render.NewServer(page)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.ErrOrStderr(), "Chart server running at %s\n", url)
	fmt.Fprintf(cmd.ErrOrStderr(), "Press Ctrl-C to stop.\n")

	if open {
		if err := render.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
