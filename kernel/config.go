package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/concierge/memory"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/orchestrate/config"
)

// EnvPrefix prefixes every environment override, e.g. CONCIERGE_ORACLE_MODEL.
const EnvPrefix = "CONCIERGE"

// DefaultFallbackReply is returned when a turn ends without an assistant
// reply carrying text.
const DefaultFallbackReply = "How else can I help you with your shopping today?"

// StoreConfig locates the commerce database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path" split_words:"true"`
	Seed bool   `json:"seed,omitempty" yaml:"seed,omitempty" split_words:"true"`
}

// RedisConfig configures the "redis" checkpoint store.
type RedisConfig struct {
	Address  string        `json:"address" yaml:"address" split_words:"true"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty" split_words:"true"`
	DB       int           `json:"db,omitempty" yaml:"db,omitempty" split_words:"true"`
	Prefix   string        `json:"prefix,omitempty" yaml:"prefix,omitempty" split_words:"true"`
	TTL      time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty" split_words:"true"`
}

// Config holds initialization parameters for every kernel subsystem. Each
// section delegates to that subsystem's Default/Merge pair.
type Config struct {
	// Oracle is the default model configuration.
	Oracle oracle.Config `json:"oracle" yaml:"oracle"`

	// Oracles overrides Oracle for "supervisor" or a worker name. Unset
	// fields fall back to Oracle.
	Oracles map[string]oracle.Config `json:"oracles,omitempty" yaml:"oracles,omitempty"`

	Graph  config.GraphConfig `json:"graph" yaml:"graph"`
	Memory memory.Config      `json:"memory" yaml:"memory"`
	Store  StoreConfig        `json:"store" yaml:"store"`
	Redis  RedisConfig        `json:"redis,omitempty" yaml:"redis,omitempty"`

	// MaxSteps overrides Graph.MaxIterations when positive.
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`

	FallbackReply string `json:"fallback_reply,omitempty" yaml:"fallback_reply,omitempty"`

	// SupervisorPrompt replaces the supervisor preamble. A %s receives the
	// worker names.
	SupervisorPrompt string `json:"supervisor_prompt,omitempty" yaml:"supervisor_prompt,omitempty"`

	// Workers overrides worker instructions by worker name.
	Workers map[string]string `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Oracle:        oracle.DefaultConfig(),
		Graph:         config.DefaultGraphConfig("concierge"),
		Memory:        memory.DefaultConfig(),
		Store:         StoreConfig{Path: "concierge.db"},
		FallbackReply: DefaultFallbackReply,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Oracle.Merge(&source.Oracle)
	c.Graph.Merge(&source.Graph)
	c.Memory.Merge(&source.Memory)

	if source.Store.Path != "" {
		c.Store.Path = source.Store.Path
	}
	if source.Store.Seed {
		c.Store.Seed = true
	}

	if source.Redis.Address != "" {
		c.Redis.Address = source.Redis.Address
	}
	if source.Redis.Password != "" {
		c.Redis.Password = source.Redis.Password
	}
	if source.Redis.DB > 0 {
		c.Redis.DB = source.Redis.DB
	}
	if source.Redis.Prefix != "" {
		c.Redis.Prefix = source.Redis.Prefix
	}
	if source.Redis.TTL > 0 {
		c.Redis.TTL = source.Redis.TTL
	}

	if source.MaxSteps > 0 {
		c.MaxSteps = source.MaxSteps
	}
	if source.FallbackReply != "" {
		c.FallbackReply = source.FallbackReply
	}
	if source.SupervisorPrompt != "" {
		c.SupervisorPrompt = source.SupervisorPrompt
	}

	if len(source.Oracles) > 0 {
		if c.Oracles == nil {
			c.Oracles = make(map[string]oracle.Config, len(source.Oracles))
		}
		for name, oc := range source.Oracles {
			c.Oracles[name] = oc
		}
	}
	if len(source.Workers) > 0 {
		if c.Workers == nil {
			c.Workers = make(map[string]string, len(source.Workers))
		}
		for name, instr := range source.Workers {
			c.Workers[name] = instr
		}
	}
}

// StepLimit is the effective step ceiling of one turn.
func (c *Config) StepLimit() int {
	if c.MaxSteps > 0 {
		return c.MaxSteps
	}
	if c.Graph.MaxIterations > 0 {
		return c.Graph.MaxIterations
	}
	return config.DefaultMaxIterations
}

// OracleConfig returns the configuration for a role: Oracle with the
// role's override merged on top.
func (c *Config) OracleConfig(role string) oracle.Config {
	oc := c.Oracle
	if override, ok := c.Oracles[role]; ok {
		oc.Merge(&override)
	}
	return oc
}

// LoadConfig reads a YAML or JSON config file, merges it with defaults, and
// returns the resulting Config. Files ending in .json are parsed as JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = json.Unmarshal(data, &loaded)
	} else {
		err = yaml.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// ApplyEnv overrides c from CONCIERGE_* environment variables, e.g.
// CONCIERGE_ORACLE_PROVIDER, CONCIERGE_STORE_PATH, CONCIERGE_REDIS_ADDRESS,
// CONCIERGE_MAX_STEPS. Unset variables leave c unchanged.
func (c *Config) ApplyEnv() error {
	sections := []struct {
		prefix string
		target any
	}{
		{EnvPrefix + "_ORACLE", &c.Oracle},
		{EnvPrefix + "_MEMORY", &c.Memory},
		{EnvPrefix + "_STORE", &c.Store},
		{EnvPrefix + "_REDIS", &c.Redis},
		{EnvPrefix + "_GRAPH_CHECKPOINT", &c.Graph.Checkpoint},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			return fmt.Errorf("failed to read %s environment: %w", s.prefix, err)
		}
	}

	top := struct {
		MaxSteps         int    `split_words:"true"`
		FallbackReply    string `split_words:"true"`
		SupervisorPrompt string `split_words:"true"`
		Observer         string `split_words:"true"`
	}{}
	if err := envconfig.Process(EnvPrefix, &top); err != nil {
		return fmt.Errorf("failed to read %s environment: %w", EnvPrefix, err)
	}

	c.Merge(&Config{
		MaxSteps:         top.MaxSteps,
		FallbackReply:    top.FallbackReply,
		SupervisorPrompt: top.SupervisorPrompt,
		Graph:            config.GraphConfig{Observer: top.Observer},
	})
	return nil
}
