package simulation

import (
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/vacuumsim/internal/world"
)

// Defaults mirror the classic vacuum-world setup.
const (
	DefaultSize        = 8
	DefaultStepBudget  = 200
	DefaultTrials      = 20
	DefaultParallelism = 1
)

// Config holds every knob a simulation run recognizes.
type Config struct {
	// Size is N for the N×N grid.
	Size int `json:"size" yaml:"size"`

	// DirtProbability is the independent chance of each cell starting dirty.
	DirtProbability float64 `json:"dirt_probability" yaml:"dirt_probability"`

	// StepBudget caps the number of agent actions per run.
	StepBudget int `json:"step_budget" yaml:"step_budget"`

	// Trials is the number of independent runs per policy in a comparison.
	Trials int `json:"trials" yaml:"trials"`

	// Parallelism bounds how many comparison trials run at once.
	// It never changes results, only wall time.
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// Seed fixes all randomness. Zero picks a fresh random seed per call.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Size:            DefaultSize,
		DirtProbability: world.DefaultDirtProbability,
		StepBudget:      DefaultStepBudget,
		Trials:          DefaultTrials,
		Parallelism:     DefaultParallelism,
	}
}

// Validate reports the first unusable setting, wrapping
// world.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: size must be at least 1, got %d", world.ErrInvalidConfiguration, c.Size)
	}
	if c.DirtProbability < 0 || c.DirtProbability > 1 {
		return fmt.Errorf("%w: dirt_probability must be between 0 and 1, got %f", world.ErrInvalidConfiguration, c.DirtProbability)
	}
	if c.StepBudget < 1 {
		return fmt.Errorf("%w: step_budget must be at least 1, got %d", world.ErrInvalidConfiguration, c.StepBudget)
	}
	if c.Trials < 1 {
		return fmt.Errorf("%w: trials must be at least 1, got %d", world.ErrInvalidConfiguration, c.Trials)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", world.ErrInvalidConfiguration, c.Parallelism)
	}
	return nil
}

// ResolveSeed returns seed, or a fresh random non-zero seed when seed is 0.
func ResolveSeed(seed uint64) uint64 {
	for seed == 0 {
		seed = rand.Uint64()
	}
	return seed
}

// TrialSeed derives the seed for one trial of one policy in a comparison.
// Distinct (policy, trial) pairs get unrelated streams, so the two policies
// never share environments or move sequences.
func TrialSeed(base uint64, policyIndex, trial int) uint64 {
	return splitmix64(base ^ splitmix64(uint64(policyIndex)<<32|uint64(uint32(trial))))
}

// newSource builds the random source shared by a run's environment and agent.
func newSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, splitmix64(seed)))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
