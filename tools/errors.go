package tools

import "errors"

// Sentinel errors for the capability registry.
var (
	ErrNotFound         = errors.New("tool not found")
	ErrAlreadyExists    = errors.New("tool already registered")
	ErrEmptyName        = errors.New("tool name is empty")
	ErrNilExecutor      = errors.New("tool executor is nil")
	ErrInvalidArguments = errors.New("invalid tool arguments")
	ErrExecutorFailure  = errors.New("tool execution failed")
)
