package graph

import "github.com/tailored-agentic-units/concierge/observability"

const (
	EventGraphStart     observability.EventType = "graph.start"
	EventGraphComplete  observability.EventType = "graph.complete"
	EventNodeStart      observability.EventType = "node.start"
	EventNodeComplete   observability.EventType = "node.complete"
	EventEdgeTransition observability.EventType = "edge.transition"
	EventCycleDetected  observability.EventType = "cycle.detected"
	EventStepLimit      observability.EventType = "graph.step_limit"

	EventCheckpointSave   observability.EventType = "checkpoint.save"
	EventCheckpointLoad   observability.EventType = "checkpoint.load"
	EventCheckpointResume observability.EventType = "checkpoint.resume"
	EventCheckpointDelete observability.EventType = "checkpoint.delete"
)
