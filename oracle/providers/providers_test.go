package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/oracle/providers"
)

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{provider: "openai", want: "openai"},
		{provider: "ollama", want: "openai"},
		{provider: "anthropic", want: "anthropic"},
		{provider: "mock", want: "mock"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := providers.New(context.Background(), &oracle.Config{Provider: tt.provider, APIKey: "k"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := providers.New(context.Background(), &oracle.Config{Provider: "carrier-pigeon"})
	assert.ErrorIs(t, err, oracle.ErrUnknownProvider)
}

func TestFactory_WithRegistry(t *testing.T) {
	r := oracle.NewRegistry(providers.Factory(context.Background()))
	require.NoError(t, r.Register(oracle.DefaultName, oracle.Config{Provider: "mock"}))

	a, err := r.Get("supervisor")
	require.NoError(t, err)
	assert.Equal(t, "mock", a.Provider().Name())
}
