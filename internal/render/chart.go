package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/simulation"
)

// ComparisonChart builds the average performance bar chart: one group per
// policy with mean moves and mean efficiency in percent.
func ComparisonChart(cmp simulation.Comparison) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Average Performance Comparison",
			Subtitle: fmt.Sprintf("%d trials, %dx%d grid, dirt p=%.2f, budget %d, seed %d",
				cmp.Config.Trials, cmp.Config.Size, cmp.Config.Size,
				cmp.Config.DirtProbability, cmp.Config.StepBudget, cmp.Seed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, 0, len(cmp.Policies))
	moves := make([]opts.BarData, 0, len(cmp.Policies))
	eff := make([]opts.BarData, 0, len(cmp.Policies))
	for _, p := range cmp.Policies {
		labels = append(labels, p.Policy.Label())
		moves = append(moves, opts.BarData{Value: round1(p.MeanMoves)})
		eff = append(eff, opts.BarData{Value: round1(p.MeanEfficiency * 100)})
	}

	bar.SetXAxis(labels).
		AddSeries("Avg Moves", moves).
		AddSeries("Avg Efficiency (%)", eff)
	return bar
}

// RunChart plots efficiency and the remaining dirt fraction against steps
// for one observed run.
func RunChart(kind agent.Kind, frames []simulation.Frame) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Performance Metrics",
			Subtitle: kind.Label() + " Agent",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	steps, eff, dirt := runSeries(frames)
	line.SetXAxis(steps).
		AddSeries("Efficiency", eff).
		AddSeries("Dirt Remaining", dirt)
	return line
}

// runSeries builds one point per step. The terminal frame repeats the last
// step number, so it replaces that point instead of adding one.
func runSeries(frames []simulation.Frame) ([]string, []opts.LineData, []opts.LineData) {
	steps := make([]string, 0, len(frames))
	eff := make([]opts.LineData, 0, len(frames))
	dirt := make([]opts.LineData, 0, len(frames))
	for i, f := range frames {
		var left float64
		if f.InitialDirt > 0 {
			left = float64(f.Remaining) / float64(f.InitialDirt)
		}
		if i > 0 && f.Step == frames[i-1].Step {
			eff[len(eff)-1] = opts.LineData{Value: f.Stats.Efficiency}
			dirt[len(dirt)-1] = opts.LineData{Value: left}
			continue
		}
		steps = append(steps, fmt.Sprintf("%d", f.Step))
		eff = append(eff, opts.LineData{Value: f.Stats.Efficiency})
		dirt = append(dirt, opts.LineData{Value: left})
	}
	return steps, eff, dirt
}

// WriteComparisonChart renders the comparison bar chart as an HTML page.
func WriteComparisonChart(w io.Writer, cmp simulation.Comparison) error {
	page := components.NewPage()
	page.AddCharts(ComparisonChart(cmp))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering comparison chart: %w", err)
	}
	return nil
}

// WriteRunChart renders the run metrics line chart as an HTML page.
func WriteRunChart(w io.Writer, kind agent.Kind, frames []simulation.Frame) error {
	page := components.NewPage()
	page.AddCharts(RunChart(kind, frames))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering run chart: %w", err)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
