package oracle

import (
	"encoding/json"
	"strings"

	"github.com/tailored-agentic-units/concierge/core/protocol"
)

// RouteFunction is the name of the function every provider forces the model
// to call when making a routing decision.
const RouteFunction = "route"

// RouteTool describes the routing function with the allowed labels as an enum.
func RouteTool(labels []string) protocol.Tool {
	enum := make([]any, len(labels))
	for i, l := range labels {
		enum[i] = l
	}

	return protocol.Tool{
		Name:        RouteFunction,
		Description: "Select who should act next.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"next": map[string]any{
					"type": "string",
					"enum": enum,
				},
			},
			"required": []any{"next"},
		},
	}
}

// ParseRoute extracts the "next" label from routing function arguments.
// Malformed arguments are a ContractViolation.
func ParseRoute(arguments string) (string, error) {
	var args struct {
		Next string `json:"next"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", Violation("route arguments %q: %v", arguments, err)
	}
	return strings.TrimSpace(args.Next), nil
}
