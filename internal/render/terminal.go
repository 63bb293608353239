// Package render presents simulation output: colored terminal frames, the
// console comparison report, JSON frame streams and HTML charts.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/simulation"
)

const (
	cellDirty = "#"
	cellClean = "."
	cellAgent = "@"

	// clearScreen moves the cursor home and clears the terminal.
	clearScreen = "\033[H\033[2J"
)

// Terminal draws frames as text grids. Colors are optional so output can be
// piped or compared in tests.
type Terminal struct {
	w     io.Writer
	au    aurora.Aurora
	clear bool
}

// NewTerminal returns a Terminal writing to w. With colors set, frames use
// ANSI colors and each frame clears the screen first.
func NewTerminal(w io.Writer, colors bool) *Terminal {
	return &Terminal{w: w, au: aurora.NewAurora(colors), clear: colors}
}

// Frame draws one frame for the named policy.
func (t *Terminal) Frame(kind agent.Kind, f simulation.Frame) error {
	var b strings.Builder
	if t.clear {
		b.WriteString(clearScreen)
	}

	fmt.Fprintf(&b, "%s  step %d", t.au.Bold(kind.Label()+" Agent"), f.Step)
	if f.Action != agent.ActionNone {
		fmt.Fprintf(&b, "  %s", f.Action)
	}
	if f.Outcome != simulation.OutcomeRunning {
		fmt.Fprintf(&b, "  [%s]", t.outcome(f.Outcome))
	}
	b.WriteString("\n\n")

	for y, row := range f.Grid {
		for x, dirty := range row {
			b.WriteByte(' ')
			switch {
			case f.Position.X == x && f.Position.Y == y:
				b.WriteString(t.au.Bold(t.au.Blue(cellAgent)).String())
			case dirty:
				b.WriteString(t.au.Yellow(cellDirty).String())
			default:
				b.WriteString(cellClean)
			}
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(Stats(f.Stats, f.InitialDirt, f.Remaining))

	_, err := io.WriteString(t.w, b.String())
	return err
}

// Observer adapts the Terminal into a runner observer. The first write
// error is kept and returned by the err func.
func (t *Terminal) Observer(kind agent.Kind) (simulation.Observer, func() error) {
	var firstErr error
	observe := func(f simulation.Frame) {
		if firstErr != nil {
			return
		}
		firstErr = t.Frame(kind, f)
	}
	return observe, func() error { return firstErr }
}

// Result prints the summary of a finished run.
func (t *Terminal) Result(res simulation.Result) error {
	_, err := fmt.Fprintf(t.w, "%s Agent finished: %s after %d steps (seed %d)\n%s",
		res.Policy.Label(), t.outcome(res.Outcome), res.Steps, res.Seed,
		Stats(res.Stats, res.InitialDirt, res.RemainingDirt))
	return err
}

func (t *Terminal) outcome(o simulation.Outcome) aurora.Value {
	switch o {
	case simulation.OutcomeConverged:
		return t.au.Green(o)
	case simulation.OutcomeBudgetExhausted:
		return t.au.Red(o)
	default:
		return t.au.Cyan(o)
	}
}

// Stats formats the per-run counters shown under each frame.
func Stats(s agent.Stats, initialDirt, remaining int) string {
	return fmt.Sprintf("Moves: %d\nCleaned: %d/%d\nEfficiency: %s\nDirt Left: %d\n",
		s.Moves, s.Cleaned, initialDirt, Percent(s.Efficiency), remaining)
}

// Percent formats a ratio as a percentage with two decimals.
func Percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// JSONFrames returns an observer that writes each frame as one JSON line.
// The first encoding error is kept and returned by the err func.
func JSONFrames(w io.Writer) (simulation.Observer, func() error) {
	enc := json.NewEncoder(w)
	var firstErr error
	observe := func(f simulation.Frame) {
		if firstErr != nil {
			return
		}
		firstErr = enc.Encode(f)
	}
	return observe, func() error { return firstErr }
}
