package agent

import (
	"testing"

	"github.com/nvandessel/vacuumsim/internal/world"
)

func TestMemoryStartsUnknown(t *testing.T) {
	env := mustEnv(t, grid(4, world.Position{}))
	m := mustAgent(t, KindMemory, env, 10, 1).(*MemoryAugmented)

	for y, row := range m.Knowledge() {
		for x, b := range row {
			if b != Unknown {
				t.Errorf("knowledge(%d,%d) = %s before any perception, want unknown", x, y, b)
			}
		}
	}

	// The dirty start cell is perceived and cleaned rather than assumed clean.
	action, err := m.Act()
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if action != ActionClean {
		t.Errorf("Act() = %q on dirty start cell, want CLEAN", action)
	}
	if got := m.Belief(world.Position{}); got != KnownClean {
		t.Errorf("Belief(start) after cleaning = %s, want clean", got)
	}
}

func TestMemoryPerceiveRecordsBelief(t *testing.T) {
	env := mustEnv(t, grid(3, world.Position{}))
	m := mustAgent(t, KindMemory, env, 10, 1).(*MemoryAugmented)

	dirty, err := m.Perceive()
	if err != nil {
		t.Fatalf("Perceive() error = %v", err)
	}
	if !dirty {
		t.Fatal("Perceive() = false on dirty cell")
	}
	if got := m.Belief(world.Position{}); got != KnownDirty {
		t.Errorf("Belief() = %s, want dirty", got)
	}
	if env.RemainingDirt() != 1 {
		t.Error("Perceive() mutated the environment")
	}
}

func TestMemoryUnvisitedCellsStayUnknown(t *testing.T) {
	env, err := world.New(10, 0.3, newRNG(5))
	if err != nil {
		t.Fatalf("world.New() error = %v", err)
	}
	m := mustAgent(t, KindMemory, env, 60, 5).(*MemoryAugmented)

	visited := map[world.Position]bool{m.Position(): true}
	for {
		action, err := m.Act()
		if err != nil {
			t.Fatalf("Act() error = %v", err)
		}
		if action == ActionNone {
			break
		}
		visited[m.Position()] = true
	}

	// The final position may not have been perceived yet; everything else
	// known must have been visited.
	for y, row := range m.Knowledge() {
		for x, b := range row {
			p := world.Position{X: x, Y: y}
			if b != Unknown && !visited[p] {
				t.Errorf("cell %s never visited but belief is %s", p, b)
			}
		}
	}
}

func TestMemoryPrefersUnexplored(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		env := mustEnv(t, grid(3))
		m := mustAgent(t, KindMemory, env, 10, seed).(*MemoryAugmented)
		m.pos = world.Position{X: 1, Y: 1}
		// Everything except the cell to the right is known.
		for y := range m.knowledge {
			for x := range m.knowledge[y] {
				m.knowledge[y][x] = KnownClean
			}
		}
		m.knowledge[1][2] = Unknown

		action, err := m.Act()
		if err != nil {
			t.Fatalf("Act() error = %v", err)
		}
		if action != ActionRight {
			t.Fatalf("seed %d: Act() = %q, want RIGHT toward the only unexplored neighbor", seed, action)
		}
	}
}

func TestMemoryFallsBackWhenNeighborhoodKnown(t *testing.T) {
	seen := make(map[Action]bool)
	for seed := uint64(0); seed < 100; seed++ {
		env := mustEnv(t, grid(3))
		m := mustAgent(t, KindMemory, env, 10, seed).(*MemoryAugmented)
		for y := range m.knowledge {
			for x := range m.knowledge[y] {
				m.knowledge[y][x] = KnownClean
			}
		}
		action, err := m.Act()
		if err != nil {
			t.Fatalf("Act() error = %v", err)
		}
		seen[action] = true
	}
	if !seen[ActionRight] || !seen[ActionDown] {
		t.Errorf("fallback from corner should reach both neighbors, saw %v", seen)
	}
	if len(seen) != 2 {
		t.Errorf("corner has 2 admissible moves, saw %v", seen)
	}
}

func TestMemoryRevisitAfterCleaning(t *testing.T) {
	env := mustEnv(t, grid(2, world.Position{}))
	m := mustAgent(t, KindMemory, env, 60, 4).(*MemoryAugmented)

	if _, err := m.Perceive(); err != nil {
		t.Fatalf("Perceive() error = %v", err)
	}
	if m.Belief(world.Position{}) != KnownDirty {
		t.Fatal("start cell should be known dirty after perceiving")
	}

	if action, _ := m.Act(); action != ActionClean {
		t.Fatalf("Act() = %q, want CLEAN", action)
	}

	returned := false
	for i := 0; i < 59; i++ {
		if _, err := m.Act(); err != nil {
			t.Fatalf("Act() error = %v", err)
		}
		if m.Position() == (world.Position{}) {
			returned = true
			if _, err := m.Perceive(); err != nil {
				t.Fatalf("Perceive() error = %v", err)
			}
			break
		}
	}
	if !returned {
		t.Fatal("agent never returned to the start cell")
	}
	if got := m.Belief(world.Position{}); got != KnownClean {
		t.Errorf("Belief(start) on revisit = %s, want clean", got)
	}
}

func TestBeliefOffGrid(t *testing.T) {
	m := mustAgent(t, KindMemory, mustEnv(t, grid(2)), 5, 1).(*MemoryAugmented)
	if got := m.Belief(world.Position{X: -1, Y: 0}); got != Unknown {
		t.Errorf("Belief(off grid) = %s, want unknown", got)
	}
}
