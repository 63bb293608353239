// Package agent implements the cleaning policies that act on a world.Environment.
//
// Every policy follows the same step protocol: perceive the current cell,
// clean it if dirty, otherwise move to an admissible neighbor. Policies differ
// only in how they pick that neighbor.
package agent

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/nvandessel/vacuumsim/internal/world"
)

// Kind selects a policy variant.
type Kind string

const (
	// KindReactive picks moves uniformly at random from the current percept only.
	KindReactive Kind = "reactive"
	// KindMemory keeps a belief map and prefers unexplored neighbors.
	KindMemory Kind = "memory"
)

// Kinds lists every policy variant in reporting order.
func Kinds() []Kind {
	return []Kind{KindReactive, KindMemory}
}

// Label returns the human-readable policy name.
func (k Kind) Label() string {
	switch k {
	case KindReactive:
		return "Reactive"
	case KindMemory:
		return "Memory-Augmented"
	default:
		return string(k)
	}
}

// Valid reports whether k names a known policy.
func (k Kind) Valid() bool {
	return k == KindReactive || k == KindMemory
}

// ParseKind maps a policy name to its Kind. Aliases used in reports are
// accepted ("reflex", "model-based", "memory-augmented").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reactive", "reflex", "simple-reflex":
		return KindReactive, nil
	case "memory", "memory-augmented", "model-based", "model":
		return KindMemory, nil
	default:
		return "", fmt.Errorf("unknown policy %q (valid: reactive, memory)", s)
	}
}

// Action is the outcome of a single Act call.
type Action string

const (
	// ActionNone signals the step budget is spent. No state changed.
	ActionNone  Action = ""
	ActionClean Action = "CLEAN"
	ActionUp    Action = Action(world.Up)
	ActionDown  Action = Action(world.Down)
	ActionLeft  Action = Action(world.Left)
	ActionRight Action = Action(world.Right)
)

// IsMove reports whether the action moved the agent.
func (a Action) IsMove() bool {
	switch a {
	case ActionUp, ActionDown, ActionLeft, ActionRight:
		return true
	}
	return false
}

// Stats is a read-only summary of an agent's performance so far.
type Stats struct {
	Policy     Kind    `json:"policy"`
	Moves      int     `json:"moves"`
	Cleaned    int     `json:"cleaned"`
	Efficiency float64 `json:"efficiency"`
}

// Policy is the contract shared by all cleaning agents.
type Policy interface {
	// Perceive reports whether the current cell is dirty. It never mutates
	// the environment.
	Perceive() (bool, error)

	// Act performs one step. It returns ActionNone once the step budget is
	// spent; otherwise it consumes one move and either cleans the current
	// cell or moves to a neighbor.
	Act() (Action, error)

	// Stats returns the current statistics.
	Stats() Stats

	// Position returns the agent's current cell.
	Position() world.Position

	// Environment returns the grid the agent is bound to.
	Environment() *world.Environment

	// Kind identifies the policy variant.
	Kind() Kind
}

// New constructs the policy selected by kind, bound to env and starting at (0,0).
func New(kind Kind, env *world.Environment, stepBudget int, rng *rand.Rand) (Policy, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: environment is required", world.ErrInvalidConfiguration)
	}
	if stepBudget < 1 {
		return nil, fmt.Errorf("%w: step budget must be at least 1, got %d", world.ErrInvalidConfiguration, stepBudget)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", world.ErrInvalidConfiguration)
	}

	b := body{env: env, rng: rng, budget: stepBudget}
	switch kind {
	case KindReactive:
		return &Reactive{body: b}, nil
	case KindMemory:
		return newMemoryAugmented(b), nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", world.ErrInvalidConfiguration, kind)
	}
}

// body holds the state every policy shares: position, counters and the
// non-owning environment reference.
type body struct {
	env    *world.Environment
	rng    *rand.Rand
	budget int

	pos     world.Position
	moves   int
	cleaned int
}

func (b *body) Position() world.Position {
	return b.pos
}

func (b *body) Environment() *world.Environment {
	return b.env
}

func (b *body) stats(kind Kind) Stats {
	s := Stats{Policy: kind, Moves: b.moves, Cleaned: b.cleaned}
	if b.moves > 0 {
		s.Efficiency = float64(b.cleaned) / float64(b.moves)
	}
	return s
}

// step runs the shared act protocol. perceive observes the current cell,
// choose picks among admissible moves, and cleaned (optional) is told about
// each successful clean.
func (b *body) step(perceive func() (bool, error), choose func([]world.Move) world.Move, cleaned func(world.Position)) (Action, error) {
	if b.moves >= b.budget {
		return ActionNone, nil
	}
	b.moves++

	dirty, err := perceive()
	if err != nil {
		return ActionNone, err
	}
	if dirty {
		return b.clean(cleaned)
	}

	moves := b.env.Neighbors(b.pos)
	if len(moves) == 0 {
		// A 1x1 grid has nowhere to go; the step is spent on a no-op clean.
		return b.clean(cleaned)
	}

	m := choose(moves)
	b.pos = m.To
	return Action(m.Direction), nil
}

func (b *body) clean(cleaned func(world.Position)) (Action, error) {
	ok, err := b.env.Clean(b.pos)
	if err != nil {
		return ActionNone, err
	}
	if ok {
		b.cleaned++
		if cleaned != nil {
			cleaned(b.pos)
		}
	}
	return ActionClean, nil
}

// pick returns a uniformly random element of moves.
func (b *body) pick(moves []world.Move) world.Move {
	return moves[b.rng.IntN(len(moves))]
}
