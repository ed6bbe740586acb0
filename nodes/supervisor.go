package nodes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/session"
)

// Decider chooses a label from allowed. *oracle.Adapter implements it.
type Decider interface {
	Decide(ctx context.Context, instruction, question string, history []protocol.Message, allowed []string) (string, error)
}

// Supervisor routes the conversation. It never appends to the log.
type Supervisor struct {
	oracle      Decider
	labels      LabelSet
	instruction string
	opts        options
}

// NewSupervisor creates a supervisor over the closed label set.
func NewSupervisor(o Decider, labels LabelSet, instruction string, opts ...Option) *Supervisor {
	return &Supervisor{
		oracle:      o,
		labels:      labels,
		instruction: instruction,
		opts:        newOptions(opts),
	}
}

// Labels returns the label set.
func (s *Supervisor) Labels() LabelSet {
	return s.labels
}

// Instruction returns the routing instruction.
func (s *Supervisor) Instruction() string {
	return s.instruction
}

// Execute asks the oracle for the next label and records it as the route.
// A contract violation routes to Finish; oracle unavailability is returned.
func (s *Supervisor) Execute(ctx context.Context, sess session.Session) error {
	raw, err := s.oracle.Decide(ctx, s.instruction, RoutingQuestion, sess.Messages(), s.labels.Strings())
	if err == nil {
		var label Label
		if label, err = s.labels.Parse(raw); err == nil {
			sess.SetRoute(string(label))
			s.emit(ctx, observability.LevelInfo, label, OutcomeOK, nil)
			return nil
		}
		err = &oracle.ContractViolation{Kind: oracle.KindLabel, Value: raw, Allowed: s.labels.Strings()}
	}

	if errors.Is(err, oracle.ErrContractViolation) {
		s.opts.logger.WarnContext(ctx, "routing decision rejected, finishing turn",
			slog.String("session", sess.ID()),
			slog.Any("error", err))
		sess.SetRoute(string(Finish))
		s.emit(ctx, observability.LevelWarning, Finish, OutcomeViolation, err)
		return nil
	}

	s.emit(ctx, observability.LevelError, "", OutcomeUnavailable, err)
	return err
}

func (s *Supervisor) emit(ctx context.Context, level observability.Level, label Label, outcome string, err error) {
	data := map[string]any{observability.KeyOutcome: outcome}
	if label != "" {
		data[observability.KeyLabel] = string(label)
	}
	if err != nil {
		data[observability.KeyError] = err
	}
	observability.Emit(ctx, s.opts.observer, EventRoute, level, "supervisor", data)
}
