package kernel

import (
	"errors"

	"github.com/tailored-agentic-units/concierge/orchestrate/graph"
)

var (
	// ErrEmptyQuery is returned when a turn has no text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidActor is returned for actor ids that are not positive.
	ErrInvalidActor = errors.New("invalid actor id")

	// ErrNoRegistry and ErrNoCrew are returned by New when the capability
	// registry or the crew was not supplied.
	ErrNoRegistry = errors.New("no capability registry")
	ErrNoCrew     = errors.New("no crew")

	// ErrUnknownCheckpointStore is returned for an unrecognised
	// graph.checkpoint.store name.
	ErrUnknownCheckpointStore = errors.New("unknown checkpoint store")

	// ErrStepLimit is returned when a turn exceeds its step ceiling. It
	// matches oracle.ErrOracleUnavailable.
	ErrStepLimit = graph.ErrStepLimit
)
