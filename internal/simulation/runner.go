package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/vacuumsim/internal/agent"
	"github.com/nvandessel/vacuumsim/internal/logging"
	"github.com/nvandessel/vacuumsim/internal/world"
)

// Outcome is the runner's state. A run starts Running and ends in exactly one
// terminal state.
type Outcome string

const (
	OutcomeRunning         Outcome = "running"
	OutcomeConverged       Outcome = "converged"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
)

// Result is the final snapshot of a single run.
type Result struct {
	Policy        agent.Kind  `json:"policy"`
	Seed          uint64      `json:"seed"`
	Size          int         `json:"size"`
	Stats         agent.Stats `json:"stats"`
	InitialDirt   int         `json:"initial_dirt"`
	RemainingDirt int         `json:"remaining_dirt"`
	Steps         int         `json:"steps"`
	Outcome       Outcome     `json:"outcome"`
}

// Frame is what a visualization consumer sees after each step. Grid is a
// copy; nothing in a Frame aliases runner state.
type Frame struct {
	Step        int            `json:"step"`
	Action      agent.Action   `json:"action,omitempty"`
	Position    world.Position `json:"position"`
	Grid        [][]bool       `json:"grid"`
	Stats       agent.Stats    `json:"stats"`
	InitialDirt int            `json:"initial_dirt"`
	Remaining   int            `json:"remaining"`
	Outcome     Outcome        `json:"outcome"`
}

// Observer receives frames: one before the first step, one after every step,
// and a final one carrying the terminal Outcome. It is called synchronously
// from the step loop.
type Observer func(Frame)

// Runner drives agents through environments built from its Config.
type Runner struct {
	cfg       Config
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	observer  Observer
	runID     string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the operational logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDecisionLogger records every step to a JSONL decision trace.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(r *Runner) { r.decisions = dl }
}

// WithRunID tags decision trace events with id. Comparison trials are
// tagged "<id>-<policy>-<trial>".
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithObserver registers a frame consumer for single runs. Comparisons never
// call it.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// NewRunner validates cfg and returns a runner for it.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run executes one seeded run of the given policy on a freshly sampled
// environment.
func (r *Runner) Run(ctx context.Context, kind agent.Kind, seed uint64) (Result, error) {
	return r.run(ctx, kind, seed, r.runID, r.observer)
}

func (r *Runner) run(ctx context.Context, kind agent.Kind, seed uint64, runID string, observe Observer) (Result, error) {
	rng := newSource(seed)
	env, err := world.New(r.cfg.Size, r.cfg.DirtProbability, rng)
	if err != nil {
		return Result{}, fmt.Errorf("building environment: %w", err)
	}
	a, err := agent.New(kind, env, r.cfg.StepBudget, rng)
	if err != nil {
		return Result{}, fmt.Errorf("building %s agent: %w", kind, err)
	}

	res, err := r.drive(ctx, env, a, runID, observe)
	if err != nil {
		return Result{}, err
	}
	res.Seed = seed
	return res, nil
}

// Execute drives an already constructed agent on env. The agent must be
// bound to env and must not have acted yet.
func (r *Runner) Execute(ctx context.Context, env *world.Environment, a agent.Policy) (Result, error) {
	if env == nil || a == nil {
		return Result{}, fmt.Errorf("%w: environment and agent are required", world.ErrInvalidConfiguration)
	}
	if a.Environment() != env {
		return Result{}, fmt.Errorf("%w: agent is bound to a different environment", world.ErrInvalidConfiguration)
	}
	if moves := a.Stats().Moves; moves != 0 {
		return Result{}, fmt.Errorf("%w: agent has already made %d moves", world.ErrInvalidConfiguration, moves)
	}
	return r.drive(ctx, env, a, r.runID, r.observer)
}

func (r *Runner) drive(ctx context.Context, env *world.Environment, a agent.Policy, runID string, observe Observer) (Result, error) {
	kind := a.Kind()
	steps := 0
	outcome := OutcomeRunning

	emit := func(action agent.Action) {
		if observe == nil {
			return
		}
		observe(Frame{
			Step:        steps,
			Action:      action,
			Position:    a.Position(),
			Grid:        env.Snapshot(),
			Stats:       a.Stats(),
			InitialDirt: env.InitialDirt(),
			Remaining:   env.RemainingDirt(),
			Outcome:     outcome,
		})
	}
	emit(agent.ActionNone)

	for outcome == OutcomeRunning {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if env.RemainingDirt() == 0 {
			outcome = OutcomeConverged
			break
		}
		if steps >= r.cfg.StepBudget {
			outcome = OutcomeBudgetExhausted
			break
		}

		pos := a.Position()
		dirty, err := env.IsDirty(pos)
		if err != nil {
			return Result{}, fmt.Errorf("step %d: %w", steps+1, err)
		}

		action, err := a.Act()
		if err != nil {
			return Result{}, fmt.Errorf("step %d: %s agent: %w", steps+1, kind, err)
		}
		if action == agent.ActionNone {
			outcome = OutcomeBudgetExhausted
			break
		}
		steps++

		if moves := a.Stats().Moves; moves != steps {
			return Result{}, fmt.Errorf("step %d: agent reports %d moves, runner counted %d", steps, moves, steps)
		}

		stats := a.Stats()
		r.decisions.Log(logging.Decision{
			RunID:     runID,
			Policy:    string(kind),
			Step:      steps,
			X:         pos.X,
			Y:         pos.Y,
			Dirty:     dirty,
			Action:    string(action),
			Cleaned:   stats.Cleaned,
			Remaining: env.RemainingDirt(),
		})
		r.logger.Log(ctx, logging.LevelTrace, "step",
			"policy", kind, "step", steps, "from", pos, "action", action, "remaining", env.RemainingDirt())

		emit(action)
	}

	emit(agent.ActionNone)

	res := Result{
		Policy:        kind,
		Size:          env.Size(),
		Stats:         a.Stats(),
		InitialDirt:   env.InitialDirt(),
		RemainingDirt: env.RemainingDirt(),
		Steps:         steps,
		Outcome:       outcome,
	}
	r.logger.Debug("run finished",
		"policy", kind,
		"outcome", outcome,
		"steps", steps,
		"cleaned", res.Stats.Cleaned,
		"initial_dirt", res.InitialDirt,
		"efficiency", res.Stats.Efficiency)
	return res, nil
}
