// Package providers builds oracle providers by configured name.
package providers

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/oracle/anthropic"
	"github.com/tailored-agentic-units/concierge/oracle/gemini"
	"github.com/tailored-agentic-units/concierge/oracle/mock"
	"github.com/tailored-agentic-units/concierge/oracle/openai"
)

// Names lists the supported provider names.
var Names = []string{"openai", "ollama", "anthropic", "gemini", "mock"}

// New creates the provider selected by cfg.Provider. "ollama" is the
// OpenAI-compatible client pointed at a local Ollama server by default.
func New(ctx context.Context, cfg *oracle.Config) (oracle.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(cfg), nil
	case "ollama":
		local := *cfg
		if local.BaseURL == "" {
			local.BaseURL = "http://localhost:11434/v1"
		}
		return openai.New(&local), nil
	case "anthropic":
		return anthropic.New(cfg)
	case "gemini":
		return gemini.New(ctx, cfg)
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", oracle.ErrUnknownProvider, cfg.Provider)
	}
}

// Factory adapts New to oracle.Factory using ctx for providers that dial on
// construction.
func Factory(ctx context.Context) oracle.Factory {
	return func(cfg *oracle.Config) (oracle.Provider, error) {
		return New(ctx, cfg)
	}
}
