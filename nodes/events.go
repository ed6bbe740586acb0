package nodes

import "github.com/tailored-agentic-units/concierge/observability"

const (
	EventRoute   observability.EventType = "supervisor.route"
	EventRespond observability.EventType = "worker.respond"
	EventTool    observability.EventType = "tool.call"
)

// Outcomes reported under observability.KeyOutcome.
const (
	OutcomeOK           = "ok"
	OutcomeToolError    = "tool_error"
	OutcomeViolation    = "contract_violation"
	OutcomeUnavailable  = "oracle_unavailable"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid_arguments"
	OutcomeFailure      = "executor_failure"
)
