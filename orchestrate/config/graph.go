// Package config holds the configuration of the orchestration graph. Values
// are read once at initialization and resolved into graph dependencies by
// name.
package config

// DefaultMaxIterations bounds one turn. A turn that visits more nodes than
// this fails with a step-limit error.
const DefaultMaxIterations = 25

// CheckpointConfig controls session persistence during graph execution.
//
//   - Store: name of the checkpoint store ("memory", "redis")
//   - Interval: save after every N node executions (0 disables checkpoints)
//   - Preserve: keep checkpoints after a turn completes
type CheckpointConfig struct {
	Store    string `json:"store" yaml:"store"`
	Interval int    `json:"interval" yaml:"interval"`
	Preserve bool   `json:"preserve" yaml:"preserve"`
}

// DefaultCheckpointConfig returns checkpoint configuration with
// checkpointing disabled.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Store:    "memory",
		Interval: 0,
		Preserve: false,
	}
}

func (c *CheckpointConfig) Merge(source *CheckpointConfig) {
	if source.Store != "" {
		c.Store = source.Store
	}

	if source.Interval > 0 {
		c.Interval = source.Interval
	}

	if source.Preserve {
		c.Preserve = source.Preserve
	}
}

// GraphConfig defines configuration for graph execution.
//
// Example YAML:
//
//	name: concierge
//	observer: slog
//	max_iterations: 25
//	checkpoint:
//	  store: redis
//	  interval: 1
type GraphConfig struct {
	// Name identifies the graph in events.
	Name string `json:"name" yaml:"name"`

	// Observer selects the event observer: "slog" or "noop".
	Observer string `json:"observer" yaml:"observer"`

	// MaxIterations is the step ceiling for one execution.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
}

// DefaultGraphConfig returns defaults for graph execution: the slog
// observer, DefaultMaxIterations, and checkpoints disabled.
func DefaultGraphConfig(name string) GraphConfig {
	return GraphConfig{
		Name:          name,
		Observer:      "slog",
		MaxIterations: DefaultMaxIterations,
		Checkpoint:    DefaultCheckpointConfig(),
	}
}

func (c *GraphConfig) Merge(source *GraphConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}

	c.Checkpoint.Merge(&source.Checkpoint)
}
