// Package config provides unified configuration loading for vacuumsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/vacuumsim/internal/simulation"
	"github.com/nvandessel/vacuumsim/internal/store"
	"github.com/nvandessel/vacuumsim/internal/world"
)

// FileName is the config file name inside ~/.vacuumsim.
const FileName = "config.yaml"

// VacuumConfig contains all vacuumsim configuration settings.
type VacuumConfig struct {
	// Grid describes the sampled environments.
	Grid GridConfig `json:"grid" yaml:"grid"`

	// Run contains per-run settings shared by run and compare.
	Run RunConfig `json:"run" yaml:"run"`

	// Compare contains multi-trial settings.
	Compare CompareConfig `json:"compare" yaml:"compare"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// History configures the run ledger.
	History HistoryConfig `json:"history" yaml:"history"`
}

// GridConfig sizes the square grid and its dirt density.
type GridConfig struct {
	Size            int     `json:"size" yaml:"size"`
	DirtProbability float64 `json:"dirt_probability" yaml:"dirt_probability"`
}

// RunConfig bounds a single run.
type RunConfig struct {
	StepBudget int `json:"step_budget" yaml:"step_budget"`

	// Seed fixes the random stream. 0 picks a fresh seed per invocation.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// CompareConfig configures policy comparisons.
type CompareConfig struct {
	Trials      int `json:"trials" yaml:"trials"`
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// LoggingConfig configures vacuumsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .vacuumsim/decisions.jsonl.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig locates the SQLite history database.
type HistoryConfig struct {
	// Path of the database. Empty means ~/.vacuumsim/history.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Default returns a VacuumConfig with the simulation defaults.
func Default() *VacuumConfig {
	sim := simulation.DefaultConfig()
	return &VacuumConfig{
		Grid: GridConfig{
			Size:            sim.Size,
			DirtProbability: sim.DirtProbability,
		},
		Run: RunConfig{
			StepBudget: sim.StepBudget,
			Seed:       sim.Seed,
		},
		Compare: CompareConfig{
			Trials:      sim.Trials,
			Parallelism: sim.Parallelism,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.vacuumsim/config.yaml.
func DefaultPath() (string, error) {
	dir, err := store.GlobalPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.vacuumsim/config.yaml -> environment variables
func Load() (*VacuumConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFrom loads path when it is set and falls back to Load otherwise.
// Environment overrides apply in both cases.
func LoadFrom(path string) (*VacuumConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys missing
// from the file keep their defaults.
func LoadFromFile(path string) (*VacuumConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.History.Path = expandPath(config.History.Path)

	return config, nil
}

// Save writes the configuration as YAML to path with owner-only permissions.
func (c *VacuumConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *VacuumConfig) Validate() error {
	if err := c.Simulation().Validate(); err != nil {
		return err
	}
	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level: %s (valid: info, debug, trace, or empty for default)",
			world.ErrInvalidConfiguration, c.Logging.Level)
	}
	return nil
}

// Simulation converts the file-level settings into a runner configuration.
func (c *VacuumConfig) Simulation() simulation.Config {
	return simulation.Config{
		Size:            c.Grid.Size,
		DirtProbability: c.Grid.DirtProbability,
		StepBudget:      c.Run.StepBudget,
		Trials:          c.Compare.Trials,
		Parallelism:     c.Compare.Parallelism,
		Seed:            c.Run.Seed,
	}
}

// HistoryPath returns the configured history database path, or the default.
func (c *VacuumConfig) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	return store.DefaultHistoryPath()
}

// Keys lists every dotted key accepted by Get and Set, in display order.
func Keys() []string {
	return []string{
		"grid.size",
		"grid.dirt_probability",
		"run.step_budget",
		"run.seed",
		"compare.trials",
		"compare.parallelism",
		"logging.level",
		"history.path",
	}
}

// Get retrieves a configuration value by dot-notation key.
func (c *VacuumConfig) Get(key string) (interface{}, bool) {
	switch key {
	case "grid.size":
		return c.Grid.Size, true
	case "grid.dirt_probability":
		return c.Grid.DirtProbability, true
	case "run.step_budget":
		return c.Run.StepBudget, true
	case "run.seed":
		return c.Run.Seed, true
	case "compare.trials":
		return c.Compare.Trials, true
	case "compare.parallelism":
		return c.Compare.Parallelism, true
	case "logging.level":
		return c.Logging.Level, true
	case "history.path":
		return c.History.Path, true
	default:
		return nil, false
	}
}

// Set assigns a configuration value by dot-notation key. A malformed value
// leaves the config unchanged. The result is not validated; call Validate
// before persisting.
func (c *VacuumConfig) Set(key, value string) error {
	switch key {
	case "grid.size":
		return setInt(&c.Grid.Size, key, value)
	case "grid.dirt_probability":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not a number", key, value)
		}
		c.Grid.DirtProbability = f
	case "run.step_budget":
		return setInt(&c.Run.StepBudget, key, value)
	case "run.seed":
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not an unsigned integer", key, value)
		}
		c.Run.Seed = n
	case "compare.trials":
		return setInt(&c.Compare.Trials, key, value)
	case "compare.parallelism":
		return setInt(&c.Compare.Parallelism, key, value)
	case "logging.level":
		c.Logging.Level = strings.ToLower(value)
	case "history.path":
		c.History.Path = expandPath(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// applyEnvOverrides applies VACUUMSIM_* environment variable overrides.
// Malformed numbers are reported rather than ignored.
func applyEnvOverrides(config *VacuumConfig) error {
	overrides := []struct {
		env string
		key string
	}{
		{"VACUUMSIM_GRID_SIZE", "grid.size"},
		{"VACUUMSIM_DIRT_PROBABILITY", "grid.dirt_probability"},
		{"VACUUMSIM_STEP_BUDGET", "run.step_budget"},
		{"VACUUMSIM_SEED", "run.seed"},
		{"VACUUMSIM_TRIALS", "compare.trials"},
		{"VACUUMSIM_PARALLELISM", "compare.parallelism"},
		{"VACUUMSIM_LOG_LEVEL", "logging.level"},
		{"VACUUMSIM_HISTORY_DB", "history.path"},
	}
	for _, o := range overrides {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		if err := config.Set(o.key, v); err != nil {
			return fmt.Errorf("%s: %w", o.env, err)
		}
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not an integer", key, value)
	}
	*dst = n
	return nil
}

// expandPath expands ${VAR} patterns and a leading ~/.
func expandPath(p string) string {
	if strings.Contains(p, "${") {
		p = os.Expand(p, os.Getenv)
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}
