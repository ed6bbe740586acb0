package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/session"
	"github.com/tailored-agentic-units/concierge/tools"
)

// ToolNode executes the tool requests in the last message against one
// worker's subset. Every request gets exactly one result, in request order.
type ToolNode struct {
	worker Label
	tools  *tools.Registry
	opts   options
}

// NewToolNode creates the tool node paired with worker.
func NewToolNode(worker Label, scoped *tools.Registry, opts ...Option) *ToolNode {
	return &ToolNode{
		worker: worker,
		tools:  scoped,
		opts:   newOptions(opts),
	}
}

// Execute runs each requested tool and appends the results. Requests for
// tools outside the subset are answered with an error result and never
// executed. Arguments are rebuilt from the tool schema with the session's
// actor bound into the tool's actor parameter.
func (n *ToolNode) Execute(ctx context.Context, sess session.Session) error {
	last, ok := sess.Last()
	if !ok || !last.HasToolCalls() {
		return nil
	}

	results := make([]protocol.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		content, isError := n.run(ctx, sess, call)
		msg := protocol.NewToolResult(call.ID, content, isError)
		msg.Author = string(n.worker)
		results = append(results, msg)
	}

	sess.Append(results...)
	return nil
}

func (n *ToolNode) run(ctx context.Context, sess session.Session, call protocol.ToolCall) (string, bool) {
	began := time.Now()

	name, err := n.tools.Parse(call.Name)
	if err != nil {
		err = fmt.Errorf("%w: %s is not available to %s", ErrUnauthorizedTool, call.Name, n.worker)
		n.opts.logger.WarnContext(ctx, "rejected tool request",
			slog.String("worker", string(n.worker)),
			slog.String("tool", call.Name),
			slog.Int64("actor", sess.ActorID()))
		n.emit(ctx, call.Name, OutcomeUnauthorized, began, err)
		return err.Error(), true
	}

	tool, _ := n.tools.Get(name)
	args, err := tools.Sanitize(tool, call.Arguments, sess.ActorID())
	if err != nil {
		n.emit(ctx, call.Name, OutcomeInvalid, began, err)
		return err.Error(), true
	}

	result, err := n.tools.Execute(ctx, name, args)
	if err != nil {
		n.opts.logger.ErrorContext(ctx, "tool execution failed",
			slog.String("tool", call.Name),
			slog.Any("error", err))
		n.emit(ctx, call.Name, OutcomeFailure, began, err)
		return err.Error(), true
	}

	outcome := OutcomeOK
	if result.IsError {
		outcome = OutcomeToolError
	}
	n.emit(ctx, call.Name, outcome, began, nil)
	return result.Content, result.IsError
}

func (n *ToolNode) emit(ctx context.Context, tool, outcome string, began time.Time, err error) {
	level := observability.LevelInfo
	data := map[string]any{
		observability.KeyTool:     tool,
		observability.KeyWorker:   string(n.worker),
		observability.KeyOutcome:  outcome,
		observability.KeyDuration: time.Since(began),
	}
	if err != nil {
		data[observability.KeyError] = err
		level = observability.LevelWarning
		if errors.Is(err, tools.ErrExecutorFailure) {
			level = observability.LevelError
		}
	}
	observability.Emit(ctx, n.opts.observer, EventTool, level, string(n.worker)+".tools", data)
}
