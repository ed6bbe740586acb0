package nodes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/session"
	"github.com/tailored-agentic-units/concierge/tools"
)

// Responder produces a worker's next message. *oracle.Adapter implements it.
type Responder interface {
	Respond(ctx context.Context, instruction string, history []protocol.Message, tools []protocol.Tool) (*oracle.Reply, error)
}

// WorkerFailureReply is appended in place of a reply when the oracle fails
// during a worker step.
const WorkerFailureReply = "Sorry, I ran into a problem completing that step."

// Worker is a specialised persona with a scoped tool subset.
type Worker struct {
	name        Label
	instruction string
	tools       *tools.Registry
	oracle      Responder
	opts        options
}

// NewWorker creates a worker. scoped is the worker's tool subset and may be
// empty but not nil.
func NewWorker(name Label, instruction string, scoped *tools.Registry, o Responder, opts ...Option) *Worker {
	return &Worker{
		name:        name,
		instruction: instruction,
		tools:       scoped,
		oracle:      o,
		opts:        newOptions(opts),
	}
}

func (w *Worker) Name() Label {
	return w.name
}

// Tools returns the worker's tool subset.
func (w *Worker) Tools() *tools.Registry {
	return w.tools
}

// Execute appends exactly one assistant message authored by the worker.
//
// A reply naming a tool outside the subset is appended as requested so the
// tool node can reject it. Any other oracle failure is appended as an error
// message.
func (w *Worker) Execute(ctx context.Context, sess session.Session) error {
	instruction := expandInstruction(w.instruction, sess.ActorID())
	reply, err := w.oracle.Respond(ctx, instruction, sess.Messages(), w.tools.Definitions())

	var cv *oracle.ContractViolation
	switch {
	case err == nil:
	case errors.As(err, &cv) && cv.Reply != nil:
		w.opts.logger.WarnContext(ctx, "worker requested tool outside its subset",
			slog.String("worker", string(w.name)),
			slog.String("tool", cv.Value))
		w.emit(ctx, observability.LevelWarning, OutcomeViolation, len(cv.Reply.ToolCalls), err)
		sess.Append(w.message(cv.Reply))
		return nil
	default:
		outcome := OutcomeUnavailable
		if errors.Is(err, oracle.ErrContractViolation) {
			outcome = OutcomeViolation
		}
		w.opts.logger.ErrorContext(ctx, "worker step failed",
			slog.String("worker", string(w.name)),
			slog.Any("error", err))
		w.emit(ctx, observability.LevelError, outcome, 0, err)
		sess.Append(protocol.Message{
			Role:    protocol.RoleAssistant,
			Content: WorkerFailureReply,
			Author:  string(w.name),
			IsError: true,
		})
		return nil
	}

	w.emit(ctx, observability.LevelInfo, OutcomeOK, len(reply.ToolCalls), nil)
	sess.Append(w.message(reply))
	return nil
}

func (w *Worker) message(reply *oracle.Reply) protocol.Message {
	return protocol.Message{
		Role:      protocol.RoleAssistant,
		Content:   reply.Content,
		Author:    string(w.name),
		ToolCalls: reply.ToolCalls,
	}
}

func (w *Worker) emit(ctx context.Context, level observability.Level, outcome string, calls int, err error) {
	data := map[string]any{
		observability.KeyWorker:  string(w.name),
		observability.KeyOutcome: outcome,
		"tool_calls":             calls,
	}
	if err != nil {
		data[observability.KeyError] = err
	}
	observability.Emit(ctx, w.opts.observer, EventRespond, level, string(w.name), data)
}
