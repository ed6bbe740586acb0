package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/concierge/oracle"
)

var (
	// ErrStepLimit reports that a turn exceeded its step ceiling. A graph that
	// never reaches an exit is a failure of the decision source, so the error
	// also matches oracle.ErrOracleUnavailable.
	ErrStepLimit = fmt.Errorf("step limit exceeded: %w", oracle.ErrOracleUnavailable)

	ErrNoTransition       = errors.New("no valid transition")
	ErrCheckpointDisabled = errors.New("checkpointing not enabled for this graph")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrAlreadyComplete    = errors.New("checkpoint was at exit point, execution already complete")
)

// ExecutionError captures where and how a graph execution failed.
type ExecutionError struct {
	Node string
	Path []string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at node %s [%s]: %v", e.Node, strings.Join(e.Path, " -> "), e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
