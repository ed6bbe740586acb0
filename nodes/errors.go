package nodes

import "errors"

// ErrUnauthorizedTool marks a tool request outside the worker's subset.
// It is reported as an error tool result, never returned.
var ErrUnauthorizedTool = errors.New("unauthorized tool")
