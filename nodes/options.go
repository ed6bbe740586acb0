package nodes

import (
	"log/slog"

	"github.com/tailored-agentic-units/concierge/observability"
)

type options struct {
	observer observability.Observer
	logger   *slog.Logger
}

// Option configures a node.
type Option func(*options)

// WithObserver sets the event observer.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{
		observer: observability.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
