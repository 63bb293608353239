package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/render"
	"github.com/nvandessel/vacuumsim/internal/simulation"
	"github.com/nvandessel/vacuumsim/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one agent on a random dirty grid",
		Long: `Run a single agent until the grid is clean or the step budget is spent.

The agent starts in the top-left corner. With --animate every step is drawn
as a grid: @ marks the agent, # a dirty cell and . a clean one.

Examples:
  vacuumsim run --policy memory
  vacuumsim run --policy reactive --seed 42 --animate --delay 100ms
  vacuumsim run --policy memory --chart run.html --save
  vacuumsim run --json`,
		RunE: runRun,
	}

	cmd.Flags().String("policy", string(agent.KindMemory), "Agent policy: reactive or memory")
	cmd.Flags().Bool("animate", false, "Draw every step")
	cmd.Flags().Duration("delay", 200*time.Millisecond, "Pause between animation frames")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().String("chart", "", "Write the efficiency/dirt-remaining line chart to this HTML file")
	cmd.Flags().Bool("open", false, "Open the chart in the default browser")
	cmd.Flags().Bool("save", false, "Record the run in the history database")
	addWorldFlags(cmd)

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	policy, _ := cmd.Flags().GetString("policy")
	animate, _ := cmd.Flags().GetBool("animate")
	delay, _ := cmd.Flags().GetDuration("delay")
	noColor, _ := cmd.Flags().GetBool("no-color")
	chartPath, _ := cmd.Flags().GetString("chart")
	open, _ := cmd.Flags().GetBool("open")
	save, _ := cmd.Flags().GetBool("save")

	kind, err := agent.ParseKind(policy)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sim := cfg.Simulation()
	applyWorldFlags(cmd, &sim)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	logger := newLogger(cmd, cfg)
	decisions := newDecisionLogger(cfg)
	defer decisions.Close()

	var (
		observers []simulation.Observer
		frameErr  func() error
		frames    []simulation.Frame
	)
	if animate {
		var observe simulation.Observer
		if jsonOut {
			observe, frameErr = render.JSONFrames(out)
		} else {
			term := render.NewTerminal(out, !noColor && isTerminal(out))
			observe, frameErr = term.Observer(kind)
			observe = paced(ctx, observe, delay)
		}
		observers = append(observers, observe)
	}
	if chartPath != "" {
		observers = append(observers, func(f simulation.Frame) { frames = append(frames, f) })
	}

	runID := uuid.NewString()
	opts := []simulation.Option{
		simulation.WithLogger(logger),
		simulation.WithDecisionLogger(decisions),
		simulation.WithRunID(runID),
	}
	if len(observers) > 0 {
		opts = append(opts, simulation.WithObserver(fanOut(observers)))
	}

	runner, err := simulation.NewRunner(sim, opts...)
	if err != nil {
		return err
	}
	res, err := runner.Run(ctx, kind, simulation.ResolveSeed(sim.Seed))
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if frameErr != nil {
		if err := frameErr(); err != nil {
			return fmt.Errorf("drawing frames: %w", err)
		}
	}

	var savedID string
	if save {
		history, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer history.Close()
		savedID, err = history.SaveRun(ctx, store.RunFromResult(sim, res))
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}

	if chartPath != "" {
		if err := writeChartFile(chartPath, func(w io.Writer) error {
			return render.WriteRunChart(w, kind, frames)
		}); err != nil {
			return err
		}
	}

	if jsonOut {
		result := map[string]interface{}{
			"trace_id": runID,
			"result":   res,
		}
		if savedID != "" {
			result["run_id"] = savedID
		}
		if chartPath != "" {
			result["chart"] = chartPath
		}
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		if animate {
			fmt.Fprintln(out)
		}
		term := render.NewTerminal(out, !noColor && isTerminal(out))
		if err := term.Result(res); err != nil {
			return err
		}
		if savedID != "" {
			fmt.Fprintf(out, "Saved run %s\n", savedID)
		}
		if chartPath != "" {
			fmt.Fprintf(out, "Chart written to %s\n", chartPath)
		}
	}

	if chartPath != "" && open {
		if err := render.OpenFile(chartPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, chartPath)
		}
	}
	return nil
}

// paced delays after every frame so an animation is watchable. The delay
// ends early when ctx is cancelled; the runner then stops on its own check.
func paced(ctx context.Context, observe simulation.Observer, delay time.Duration) simulation.Observer {
	if delay <= 0 {
		return observe
	}
	return func(f simulation.Frame) {
		observe(f)
		if f.Outcome != simulation.OutcomeRunning {
			return
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

func fanOut(observers []simulation.Observer) simulation.Observer {
	if len(observers) == 1 {
		return observers[0]
	}
	return func(f simulation.Frame) {
		for _, o := range observers {
			o(f)
		}
	}
}

// writeChartFile renders a chart into path.
func writeChartFile(path string, draw func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := draw(f); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write chart file: %w", err)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
