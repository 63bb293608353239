package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/simulation"
	"github.com/nvandessel/vacuumsim/internal/world"
)

func sampleFrame() simulation.Frame {
	return simulation.Frame{
		Step:        2,
		Action:      agent.ActionRight,
		Position:    world.Position{X: 1, Y: 0},
		Grid:        [][]bool{{true, false}, {false, true}},
		Stats:       agent.Stats{Policy: agent.KindReactive, Moves: 2, Cleaned: 1, Efficiency: 0.5},
		InitialDirt: 3,
		Remaining:   2,
		Outcome:     simulation.OutcomeRunning,
	}
}

func sampleComparison() simulation.Comparison {
	cfg := simulation.DefaultConfig()
	cfg.Seed = 7
	return simulation.Comparison{
		Config: cfg,
		Seed:   7,
		Policies: []simulation.PolicySummary{
			{Policy: agent.KindReactive, Trials: 20, MeanMoves: 183.25, MeanCleaned: 17.5, MeanEfficiency: 0.0955, MeanInitialDirt: 19.2, ConvergenceRate: 0.25},
			{Policy: agent.KindMemory, Trials: 20, MeanMoves: 96.4, MeanCleaned: 19.2, MeanEfficiency: 0.2012, MeanInitialDirt: 19.2, ConvergenceRate: 1},
		},
	}
}

func TestTerminalFrame(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, false)

	if err := term.Frame(agent.KindReactive, sampleFrame()); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}

	want := "Reactive Agent  step 2  RIGHT\n\n # @\n . #\n\n" +
		"Moves: 2\nCleaned: 1/3\nEfficiency: 50.00%\nDirt Left: 2\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Frame() mismatch (-want +got):\n%s", diff)
	}
}

func TestTerminalFrameTerminal(t *testing.T) {
	var buf bytes.Buffer
	f := sampleFrame()
	f.Action = agent.ActionNone
	f.Outcome = simulation.OutcomeBudgetExhausted

	if err := NewTerminal(&buf, false).Frame(agent.KindMemory, f); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != "Memory-Augmented Agent  step 2  [budget_exhausted]" {
		t.Errorf("header = %q", first)
	}
}

func TestTerminalColors(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTerminal(&buf, true).Frame(agent.KindReactive, sampleFrame()); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, clearScreen) {
		t.Error("colored frame should start by clearing the screen")
	}
	if !strings.Contains(out, "\033[") || !strings.Contains(out, cellAgent) {
		t.Errorf("colored frame missing ANSI codes or agent marker: %q", out)
	}
}

func TestTerminalObserver(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Size = 3
	var buf bytes.Buffer
	observe, errFn := NewTerminal(&buf, false).Observer(agent.KindReactive)

	r, err := simulation.NewRunner(cfg, simulation.WithObserver(observe))
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	res, err := r.Run(context.Background(), agent.KindReactive, 11)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := errFn(); err != nil {
		t.Fatalf("observer error = %v", err)
	}
	if got, want := strings.Count(buf.String(), "Dirt Left:"), res.Steps+2; got != want {
		t.Errorf("drew %d frames, want %d", got, want)
	}
}

type failWriter struct{ calls int }

func (w *failWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("closed")
}

func TestTerminalObserverKeepsFirstError(t *testing.T) {
	w := &failWriter{}
	observe, errFn := NewTerminal(w, false).Observer(agent.KindMemory)
	observe(sampleFrame())
	observe(sampleFrame())
	if errFn() == nil {
		t.Fatal("expected write error")
	}
	if w.calls != 1 {
		t.Errorf("writer called %d times after failure, want 1", w.calls)
	}
}

func TestTerminalResult(t *testing.T) {
	var buf bytes.Buffer
	res := simulation.Result{
		Policy:        agent.KindMemory,
		Seed:          5,
		Stats:         agent.Stats{Moves: 40, Cleaned: 12, Efficiency: 0.3},
		InitialDirt:   12,
		RemainingDirt: 0,
		Steps:         40,
		Outcome:       simulation.OutcomeConverged,
	}
	if err := NewTerminal(&buf, false).Result(res); err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	want := "Memory-Augmented Agent finished: converged after 40 steps (seed 5)\n" +
		"Moves: 40\nCleaned: 12/12\nEfficiency: 30.00%\nDirt Left: 0\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Result() mismatch (-want +got):\n%s", diff)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00%"},
		{0.5, "50.00%"},
		{1.0 / 3.0, "33.33%"},
		{1, "100.00%"},
	}
	for _, tt := range tests {
		if got := Percent(tt.in); got != tt.want {
			t.Errorf("Percent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJSONFrames(t *testing.T) {
	var buf bytes.Buffer
	observe, errFn := JSONFrames(&buf)
	observe(sampleFrame())
	observe(sampleFrame())
	if err := errFn(); err != nil {
		t.Fatalf("JSONFrames error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var got simulation.Frame
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if diff := cmp.Diff(sampleFrame(), got); diff != "" {
		t.Errorf("decoded frame mismatch (-want +got):\n%s", diff)
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	if err := Report(&buf, sampleComparison()); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Compared 20 trials per policy on a 8x8 grid (dirt p=0.30, budget 200, seed 7)",
		"NUMBERS USED FOR THE BAR CHART",
		"Reactive Agent: Avg Moves = 183.2, Avg Efficiency = 9.55%",
		"Memory-Augmented Agent: Avg Moves = 96.4, Avg Efficiency = 20.12%",
		"Memory-Augmented Agent: Avg Cleaned = 19.2 of 19.2, Converged = 100.00%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestComparisonChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteComparisonChart(&buf, sampleComparison()); err != nil {
		t.Fatalf("WriteComparisonChart() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<html", "Average Performance Comparison", "Avg Moves", "Memory-Augmented"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart HTML missing %q", want)
		}
	}
}

func TestRunChart(t *testing.T) {
	frames := []simulation.Frame{sampleFrame(), sampleFrame()}
	frames[1].Step = 3
	frames[1].Remaining = 0

	var buf bytes.Buffer
	if err := WriteRunChart(&buf, agent.KindReactive, frames); err != nil {
		t.Fatalf("WriteRunChart() error = %v", err)
	}
	for _, want := range []string{"Performance Metrics", "Efficiency", "Dirt Remaining"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("run chart HTML missing %q", want)
		}
	}
}

func TestRunSeriesCollapsesTerminalFrame(t *testing.T) {
	frames := []simulation.Frame{sampleFrame(), sampleFrame(), sampleFrame(), sampleFrame()}
	frames[0].Step, frames[0].Stats.Efficiency, frames[0].Remaining = 0, 0, 3
	frames[1].Step = 1
	frames[2].Step, frames[2].Remaining = 2, 0
	frames[3].Step, frames[3].Remaining = 2, 0
	frames[3].Outcome = simulation.OutcomeConverged

	steps, eff, dirt := runSeries(frames)
	if diff := cmp.Diff([]string{"0", "1", "2"}, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
	if len(eff) != len(steps) || len(dirt) != len(steps) {
		t.Fatalf("got %d efficiency and %d dirt points for %d steps", len(eff), len(dirt), len(steps))
	}
	if got := dirt[len(dirt)-1].Value; got != float64(0) {
		t.Errorf("last dirt point = %v, want 0", got)
	}
}

func TestRound1(t *testing.T) {
	if got := round1(183.25); got != 183.3 {
		t.Errorf("round1(183.25) = %v, want 183.3", got)
	}
	if got := round1(20.12); got != 20.1 {
		t.Errorf("round1(20.12) = %v, want 20.1", got)
	}
}

func TestServerServesPage(t *testing.T) {
	page := []byte("<html><body>chart</body></html>")
	srv := NewServer(page)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	waitForServer(t, srv, 2*time.Second)

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, page) {
		t.Errorf("GET / = %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	missing, err := http.Get("http://" + srv.Addr() + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", missing.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		cmd, err := browserCommand(goos, "file:///tmp/chart.html")
		if err != nil {
			t.Errorf("browserCommand(%s) error = %v", goos, err)
			continue
		}
		if last := cmd.Args[len(cmd.Args)-1]; last != "file:///tmp/chart.html" {
			t.Errorf("browserCommand(%s) target = %q", goos, last)
		}
	}
	if _, err := browserCommand("plan9", "x"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}
