package protocol

// Tool is the oracle-facing description of a capability.
// Parameters is a JSON Schema object describing only the arguments the model
// is allowed to supply.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolNames returns the names of the given tools in order.
func ToolNames(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
