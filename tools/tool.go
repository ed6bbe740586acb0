// Package tools is the capability registry: named tools with a model-facing
// argument schema, an executor, and the argument sanitation step that binds
// the authenticated actor into every security-sensitive call.
package tools

import (
	"context"
	"encoding/json"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/tailored-agentic-units/concierge/core/protocol"
)

// Name identifies a registered tool. Values are only produced by a Registry,
// so holding a Name means the tool existed when it was parsed.
type Name string

// Args is a sanitized argument record passed to an executor.
type Args map[string]any

// Result is the executor output that feeds back into the conversation.
// IsError marks a failure the model should see and react to.
type Result struct {
	Content string
	IsError bool
}

// Executor runs a tool with sanitized arguments.
type Executor func(ctx context.Context, args Args) (Result, error)

// Tool describes one capability.
//
// Schema lists the arguments the model may supply. ActorParam, when set, is
// the argument that carries the acting user; it is never offered to the
// model and is always overwritten with the authenticated actor.
type Tool struct {
	Name        Name
	Description string
	Schema      *openapi3.Schema
	ActorParam  string
	Executor    Executor
}

// Definition returns the oracle-facing description of the tool.
func (t Tool) Definition() protocol.Tool {
	return protocol.Tool{
		Name:        string(t.Name),
		Description: t.Description,
		Parameters:  schemaMap(t.Schema),
	}
}

func schemaMap(schema *openapi3.Schema) map[string]any {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}
	if schema == nil {
		return empty
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return empty
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return empty
	}
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	return m
}
