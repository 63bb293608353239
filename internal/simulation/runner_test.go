package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/logging"
	"github.com/nvandessel/vacuumsim/internal/world"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Trials = 5
	return cfg
}

func mustRunner(t *testing.T, cfg Config, opts ...Option) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, opts...)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero size", func(c *Config) { c.Size = 0 }},
		{"negative probability", func(c *Config) { c.DirtProbability = -0.5 }},
		{"probability above one", func(c *Config) { c.DirtProbability = 1.5 }},
		{"zero budget", func(c *Config) { c.StepBudget = 0 }},
		{"zero trials", func(c *Config) { c.Trials = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, world.ErrInvalidConfiguration) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfiguration", err)
			}
			if _, err := NewRunner(cfg); !errors.Is(err, world.ErrInvalidConfiguration) {
				t.Errorf("NewRunner() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Size != 8 || cfg.DirtProbability != 0.3 || cfg.StepBudget != 200 || cfg.Trials != 20 {
		t.Errorf("DefaultConfig() = %+v, want size 8, p 0.3, budget 200, trials 20", cfg)
	}
}

func TestRunInvariants(t *testing.T) {
	sizes := []int{1, 2, 5, 8, 12}
	for _, size := range sizes {
		for _, kind := range agent.Kinds() {
			cfg := testConfig()
			cfg.Size = size
			r := mustRunner(t, cfg)
			for seed := uint64(1); seed <= 15; seed++ {
				res, err := r.Run(context.Background(), kind, seed)
				if err != nil {
					t.Fatalf("Run(%s, %d) error = %v", kind, seed, err)
				}
				AssertRunInvariants(t, cfg, res)
				if res.Seed != seed || res.Size != size {
					t.Errorf("Result seed/size = %d/%d, want %d/%d", res.Seed, res.Size, seed, size)
				}
			}
		}
	}
}

func TestRunTerminatesExactlyAtBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 10
	cfg.DirtProbability = 1
	cfg.StepBudget = 17
	r := mustRunner(t, cfg)

	for _, kind := range agent.Kinds() {
		res, err := r.Run(context.Background(), kind, 3)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != OutcomeBudgetExhausted {
			t.Errorf("%s: Outcome = %s, want budget_exhausted", kind, res.Outcome)
		}
		if res.Steps != 17 || res.Stats.Moves != 17 {
			t.Errorf("%s: Steps = %d, Moves = %d, want 17", kind, res.Steps, res.Stats.Moves)
		}
	}
}

func TestRunConvergesImmediatelyOnCleanGrid(t *testing.T) {
	cfg := testConfig()
	cfg.DirtProbability = 0
	r := mustRunner(t, cfg)

	res, err := r.Run(context.Background(), agent.KindReactive, 9)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeConverged || res.Steps != 0 || res.Stats.Moves != 0 {
		t.Errorf("Result = %+v, want converged with zero steps", res)
	}
	if res.Stats.Efficiency != 0 {
		t.Errorf("Efficiency = %f, want 0 with no moves", res.Stats.Efficiency)
	}
}

func TestExecuteSingleCell(t *testing.T) {
	env, err := world.FromGrid([][]bool{{true}})
	if err != nil {
		t.Fatalf("FromGrid() error = %v", err)
	}
	cfg := testConfig()
	cfg.Size = 1
	a, err := agent.New(agent.KindMemory, env, cfg.StepBudget, newSource(1))
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}

	res, err := mustRunner(t, cfg).Execute(context.Background(), env, a)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeConverged || res.Steps != 1 || res.Stats.Cleaned != 1 {
		t.Errorf("Result = %+v, want converged after one cleaning step", res)
	}
}

func TestExecuteRejectsUsedAgent(t *testing.T) {
	env, err := world.FromGrid([][]bool{{false, true}, {true, true}})
	if err != nil {
		t.Fatalf("FromGrid() error = %v", err)
	}
	a, err := agent.New(agent.KindReactive, env, 10, newSource(2))
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	if _, err := a.Act(); err != nil {
		t.Fatalf("Act() error = %v", err)
	}

	_, err = mustRunner(t, testConfig()).Execute(context.Background(), env, a)
	if !errors.Is(err, world.ErrInvalidConfiguration) {
		t.Errorf("Execute() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestExecuteRejectsForeignEnvironment(t *testing.T) {
	bound, err := world.FromGrid([][]bool{{true, false}, {false, false}})
	if err != nil {
		t.Fatalf("FromGrid() error = %v", err)
	}
	other, err := world.FromGrid([][]bool{{true, true}, {true, true}})
	if err != nil {
		t.Fatalf("FromGrid() error = %v", err)
	}
	a, err := agent.New(agent.KindMemory, bound, 10, newSource(4))
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}

	_, err = mustRunner(t, testConfig()).Execute(context.Background(), other, a)
	if !errors.Is(err, world.ErrInvalidConfiguration) {
		t.Errorf("Execute() error = %v, want ErrInvalidConfiguration", err)
	}
	if got := bound.RemainingDirt(); got != 1 {
		t.Errorf("bound RemainingDirt() = %d, want 1 (agent must not act)", got)
	}
}

func TestExecuteStopsWithAgentBudget(t *testing.T) {
	// The agent's own budget is smaller than the runner's: Act returns
	// ActionNone and the run ends exhausted without extra steps.
	env, err := world.FromGrid([][]bool{{false, false, false}, {false, false, false}, {false, false, true}})
	if err != nil {
		t.Fatalf("FromGrid() error = %v", err)
	}
	a, err := agent.New(agent.KindReactive, env, 2, newSource(3))
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}

	res, err := mustRunner(t, testConfig()).Execute(context.Background(), env, a)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeBudgetExhausted || res.Steps != 2 {
		t.Errorf("Result = %+v, want budget_exhausted after 2 steps", res)
	}
}

func TestDeterministicReplay(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 6

	trace := func(kind agent.Kind, seed uint64) [][2]int {
		var seq [][2]int
		r := mustRunner(t, cfg, WithObserver(func(f Frame) {
			seq = append(seq, [2]int{f.Stats.Moves, f.Stats.Cleaned})
		}))
		if _, err := r.Run(context.Background(), kind, seed); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return seq
	}

	for _, kind := range agent.Kinds() {
		first := trace(kind, 1234)
		second := trace(kind, 1234)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%s replay differs (-first +second):\n%s", kind, diff)
		}
		if len(first) < 2 {
			t.Errorf("%s: expected several frames, got %d", kind, len(first))
		}
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	cfg := testConfig()
	r := mustRunner(t, cfg)
	distinct := make(map[int]bool)
	for seed := uint64(1); seed <= 10; seed++ {
		res, err := r.Run(context.Background(), agent.KindReactive, seed)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		distinct[res.InitialDirt] = true
	}
	if len(distinct) < 2 {
		t.Error("ten seeds produced identical initial dirt; seeding is not applied")
	}
}

func TestObserverFrames(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 4
	var frames []Frame
	r := mustRunner(t, cfg, WithObserver(func(f Frame) { frames = append(frames, f) }))

	res, err := r.Run(context.Background(), agent.KindMemory, 77)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := res.Steps + 2; len(frames) != want {
		t.Fatalf("got %d frames, want %d (initial + steps + terminal)", len(frames), want)
	}
	if frames[0].Step != 0 || frames[0].Action != agent.ActionNone || frames[0].Outcome != OutcomeRunning {
		t.Errorf("initial frame = %+v", frames[0])
	}
	last := frames[len(frames)-1]
	if last.Outcome != res.Outcome || last.Stats != res.Stats || last.Remaining != res.RemainingDirt {
		t.Errorf("terminal frame %+v does not match result %+v", last, res)
	}
	for i, f := range frames[1 : len(frames)-1] {
		if f.Step != i+1 {
			t.Errorf("frame %d has step %d", i+1, f.Step)
		}
		if f.Action == agent.ActionNone {
			t.Errorf("frame %d has no action", i+1)
		}
		dirty := 0
		for _, row := range f.Grid {
			for _, d := range row {
				if d {
					dirty++
				}
			}
		}
		if dirty != f.Remaining {
			t.Errorf("frame %d grid has %d dirty cells, Remaining = %d", i+1, dirty, f.Remaining)
		}
	}
}

func TestDecisionTrace(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Size = 3
	cfg.StepBudget = 12
	r := mustRunner(t, cfg, WithDecisionLogger(logging.NewDecisionWriter(&buf)), WithRunID("run-1"))

	res, err := r.Run(context.Background(), agent.KindReactive, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if res.Steps == 0 {
		t.Skip("seed produced an already clean grid")
	}
	if len(lines) != res.Steps {
		t.Fatalf("decision trace has %d lines, want %d", len(lines), res.Steps)
	}
	for i, line := range lines {
		var d logging.Decision
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if d.Step != i+1 || d.RunID != "run-1" {
			t.Errorf("line %d step = %d run = %q", i, d.Step, d.RunID)
		}
		if d.Dirty && d.Action != string(agent.ActionClean) {
			t.Errorf("line %d: dirty cell produced %s", i, d.Action)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig()
	cfg.DirtProbability = 1
	_, err := mustRunner(t, cfg).Run(ctx, agent.KindReactive, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
