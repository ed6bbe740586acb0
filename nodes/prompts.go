package nodes

import (
	"fmt"
	"strings"
)

// RoutingQuestion is put to the supervisor after the conversation.
const RoutingQuestion = "Given the conversation above, who should act next? Or should we FINISH?"

// DefaultSupervisorPreamble opens the supervisor instruction. %s receives the
// comma-separated worker names.
const DefaultSupervisorPreamble = "You are the Supervisor for the E-commerce AI Assistant. This assistant is an extension " +
	"of the existing store's web interface. Your job is to route user requests to specialized " +
	"workers: %s."

// ActorPlaceholder in a worker instruction is replaced with the session's
// actor id.
const ActorPlaceholder = "{actor_id}"

// SupervisorInstruction assembles the routing instruction from a preamble,
// the crew, and optional extra context such as memory documents.
func SupervisorInstruction(preamble string, roles []Role, extra ...string) string {
	if preamble == "" {
		preamble = DefaultSupervisorPreamble
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r.Name)
	}

	var b strings.Builder
	if strings.Contains(preamble, "%s") {
		fmt.Fprintf(&b, preamble, strings.Join(names, ", "))
	} else {
		b.WriteString(preamble)
	}
	b.WriteString("\n")

	for _, r := range roles {
		if r.Description != "" {
			fmt.Fprintf(&b, "- Use '%s' %s\n", r.Name, r.Description)
		}
	}
	fmt.Fprintf(&b, "Respond with the worker to act next or '%s' if the user's request is satisfied.", Finish)

	for _, e := range extra {
		if strings.TrimSpace(e) != "" {
			b.WriteString("\n\n")
			b.WriteString(e)
		}
	}
	return b.String()
}

func expandInstruction(instruction string, actorID int64) string {
	return strings.ReplaceAll(instruction, ActorPlaceholder, fmt.Sprint(actorID))
}
