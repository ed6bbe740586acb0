package nodes

import "github.com/tailored-agentic-units/concierge/tools"

// Role describes one worker in the crew.
type Role struct {
	Name Label

	// Description completes the sentence "Use '<Name>' ..." in the
	// supervisor instruction, e.g. "to help users find items in the catalog."
	Description string

	// Instruction is the worker's system instruction. ActorPlaceholder is
	// replaced with the actor id on each call.
	Instruction string

	// Tools is the worker's capability subset.
	Tools []tools.Name
}
