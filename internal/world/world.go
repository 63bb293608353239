// Package world models the grid a cleaning agent operates on.
//
// An Environment owns an N×N grid of dirty/clean cells. Cells only ever move
// from dirty to clean, and only through Clean.
package world

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	// ErrOutOfBounds is returned when a coordinate falls outside [0,N).
	// Movement logic never produces such coordinates, so seeing it means a
	// caller broke an invariant.
	ErrOutOfBounds = errors.New("coordinate out of bounds")

	// ErrInvalidConfiguration is returned when an environment or agent is
	// constructed with unusable parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// DefaultDirtProbability is the chance of any given cell starting dirty.
const DefaultDirtProbability = 0.3

// Position is a grid coordinate. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction labels an orthogonal move.
type Direction string

const (
	Up    Direction = "UP"
	Down  Direction = "DOWN"
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"
)

// Move is an admissible step from one cell to an orthogonal neighbor.
type Move struct {
	Direction Direction `json:"direction"`
	To        Position  `json:"to"`
}

// Environment is a square grid of cells that are either dirty or clean.
// It is not safe for concurrent use; a run binds exactly one agent to it.
type Environment struct {
	size        int
	cells       [][]bool // cells[y][x], true when dirty
	initialDirt int
	remaining   int
}

// New builds a size×size environment where each cell is independently dirty
// with probability dirtProbability, drawn from rng.
func New(size int, dirtProbability float64, rng *rand.Rand) (*Environment, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: grid size must be at least 1, got %d", ErrInvalidConfiguration, size)
	}
	if dirtProbability < 0 || dirtProbability > 1 {
		return nil, fmt.Errorf("%w: dirt probability must be between 0 and 1, got %f", ErrInvalidConfiguration, dirtProbability)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidConfiguration)
	}

	cells := make([][]bool, size)
	dirty := 0
	for y := range cells {
		cells[y] = make([]bool, size)
		for x := range cells[y] {
			if rng.Float64() < dirtProbability {
				cells[y][x] = true
				dirty++
			}
		}
	}

	return &Environment{
		size:        size,
		cells:       cells,
		initialDirt: dirty,
		remaining:   dirty,
	}, nil
}

// FromGrid builds an environment from an explicit layout, rows indexed by y.
// The layout is copied.
func FromGrid(layout [][]bool) (*Environment, error) {
	size := len(layout)
	if size < 1 {
		return nil, fmt.Errorf("%w: grid must have at least one row", ErrInvalidConfiguration)
	}

	cells := make([][]bool, size)
	dirty := 0
	for y, row := range layout {
		if len(row) != size {
			return nil, fmt.Errorf("%w: grid must be square, row %d has %d cells, want %d",
				ErrInvalidConfiguration, y, len(row), size)
		}
		cells[y] = make([]bool, size)
		for x, d := range row {
			cells[y][x] = d
			if d {
				dirty++
			}
		}
	}

	return &Environment{
		size:        size,
		cells:       cells,
		initialDirt: dirty,
		remaining:   dirty,
	}, nil
}

// Size returns N for an N×N grid.
func (e *Environment) Size() int {
	return e.size
}

// InitialDirt returns the number of dirty cells at construction time.
func (e *Environment) InitialDirt() int {
	return e.initialDirt
}

// RemainingDirt returns the number of cells that are still dirty.
func (e *Environment) RemainingDirt() int {
	return e.remaining
}

// InBounds reports whether p lies on the grid.
func (e *Environment) InBounds(p Position) bool {
	return p.X >= 0 && p.X < e.size && p.Y >= 0 && p.Y < e.size
}

// IsDirty reports whether the cell at p is dirty.
func (e *Environment) IsDirty(p Position) (bool, error) {
	if !e.InBounds(p) {
		return false, fmt.Errorf("is dirty %s on %dx%d grid: %w", p, e.size, e.size, ErrOutOfBounds)
	}
	return e.cells[p.Y][p.X], nil
}

// Clean marks the cell at p clean. It returns true only when the cell was
// dirty; cleaning a clean cell has no effect.
func (e *Environment) Clean(p Position) (bool, error) {
	if !e.InBounds(p) {
		return false, fmt.Errorf("clean %s on %dx%d grid: %w", p, e.size, e.size, ErrOutOfBounds)
	}
	if !e.cells[p.Y][p.X] {
		return false, nil
	}
	e.cells[p.Y][p.X] = false
	e.remaining--
	return true, nil
}

// Neighbors returns the admissible moves from p: the orthogonal neighbors
// that lie on the grid, in the order RIGHT, LEFT, DOWN, UP. The order is
// fixed so seeded runs replay identically.
func (e *Environment) Neighbors(p Position) []Move {
	moves := make([]Move, 0, 4)
	if p.X < e.size-1 {
		moves = append(moves, Move{Direction: Right, To: Position{X: p.X + 1, Y: p.Y}})
	}
	if p.X > 0 {
		moves = append(moves, Move{Direction: Left, To: Position{X: p.X - 1, Y: p.Y}})
	}
	if p.Y < e.size-1 {
		moves = append(moves, Move{Direction: Down, To: Position{X: p.X, Y: p.Y + 1}})
	}
	if p.Y > 0 {
		moves = append(moves, Move{Direction: Up, To: Position{X: p.X, Y: p.Y - 1}})
	}
	return moves
}

// Snapshot returns a copy of the grid, rows indexed by y, true for dirty.
func (e *Environment) Snapshot() [][]bool {
	out := make([][]bool, e.size)
	for y, row := range e.cells {
		out[y] = append([]bool(nil), row...)
	}
	return out
}
