package oracle

import "time"

const (
	defaultProvider  = "openai"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

// Config selects and tunes a provider.
type Config struct {
	Provider    string        `yaml:"provider" json:"provider" split_words:"true"`
	Model       string        `yaml:"model" json:"model" split_words:"true"`
	BaseURL     string        `yaml:"base_url,omitempty" json:"base_url,omitempty" split_words:"true"`
	APIKey      string        `yaml:"api_key,omitempty" json:"api_key,omitempty" split_words:"true"`
	Temperature float64       `yaml:"temperature,omitempty" json:"temperature,omitempty" split_words:"true"`
	MaxTokens   int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" split_words:"true"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" split_words:"true"`
}

// DefaultConfig returns an OpenAI-compatible configuration.
func DefaultConfig() Config {
	return Config{
		Provider:  defaultProvider,
		Model:     defaultModel,
		MaxTokens: defaultMaxTokens,
		Timeout:   defaultTimeout,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source == nil {
		return
	}
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.Temperature != 0 {
		c.Temperature = source.Temperature
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
}
