package agent

import "github.com/nvandessel/vacuumsim/internal/world"

// Belief is the memory-augmented agent's record of a single cell.
type Belief uint8

const (
	Unknown Belief = iota
	KnownClean
	KnownDirty
)

func (b Belief) String() string {
	switch b {
	case KnownClean:
		return "clean"
	case KnownDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// MemoryAugmented records what it has seen and biases movement toward cells
// it has never perceived. It does no path planning: the belief map is only a
// visited/unvisited record.
//
// The start cell begins Unknown like every other cell and is perceived on the
// first step, so a dirty start cell is cleaned rather than assumed clean.
type MemoryAugmented struct {
	body
	knowledge [][]Belief // knowledge[y][x]; private, never aliased with the environment
}

var _ Policy = (*MemoryAugmented)(nil)

func newMemoryAugmented(b body) *MemoryAugmented {
	n := b.env.Size()
	knowledge := make([][]Belief, n)
	for y := range knowledge {
		knowledge[y] = make([]Belief, n)
	}
	return &MemoryAugmented{body: b, knowledge: knowledge}
}

// Perceive observes the current cell and overwrites its belief.
func (m *MemoryAugmented) Perceive() (bool, error) {
	dirty, err := m.env.IsDirty(m.pos)
	if err != nil {
		return false, err
	}
	if dirty {
		m.knowledge[m.pos.Y][m.pos.X] = KnownDirty
	} else {
		m.knowledge[m.pos.Y][m.pos.X] = KnownClean
	}
	return dirty, nil
}

func (m *MemoryAugmented) Act() (Action, error) {
	return m.step(m.Perceive, m.choose, m.markClean)
}

func (m *MemoryAugmented) Stats() Stats {
	return m.stats(KindMemory)
}

func (m *MemoryAugmented) Kind() Kind {
	return KindMemory
}

// Belief returns what the agent believes about p. Off-grid cells are Unknown.
func (m *MemoryAugmented) Belief(p world.Position) Belief {
	if !m.env.InBounds(p) {
		return Unknown
	}
	return m.knowledge[p.Y][p.X]
}

// Knowledge returns a copy of the belief map, rows indexed by y.
func (m *MemoryAugmented) Knowledge() [][]Belief {
	out := make([][]Belief, len(m.knowledge))
	for y, row := range m.knowledge {
		out[y] = append([]Belief(nil), row...)
	}
	return out
}

// choose prefers admissible neighbors never perceived, falling back to any
// admissible neighbor once the local neighborhood is fully known.
func (m *MemoryAugmented) choose(moves []world.Move) world.Move {
	unexplored := make([]world.Move, 0, len(moves))
	for _, mv := range moves {
		if m.knowledge[mv.To.Y][mv.To.X] == Unknown {
			unexplored = append(unexplored, mv)
		}
	}
	if len(unexplored) > 0 {
		return m.pick(unexplored)
	}
	return m.pick(moves)
}

func (m *MemoryAugmented) markClean(p world.Position) {
	m.knowledge[p.Y][p.X] = KnownClean
}
