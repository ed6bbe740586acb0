package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Observer names understood by Named.
const (
	ObserverSlog = "slog"
	ObserverNoop = "noop"
)

// ErrUnknownObserver is returned by Named for an unrecognized name.
var ErrUnknownObserver = errors.New("unknown observer")

// Discard drops every event.
var Discard Observer = discard{}

type discard struct{}

func (discard) OnEvent(context.Context, Event) {}

// Named builds the observer selected by name in configuration. The empty
// name and "slog" log through logger, or slog.Default when logger is nil.
func Named(name string, logger *slog.Logger) (Observer, error) {
	switch name {
	case "", ObserverSlog:
		return NewSlogObserver(logger), nil
	case ObserverNoop:
		return Discard, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownObserver, name)
	}
}

// Fanout delivers each event to its observers in order.
type Fanout []Observer

func (f Fanout) OnEvent(ctx context.Context, event Event) {
	for _, obs := range f {
		obs.OnEvent(ctx, event)
	}
}

// Join combines observers into one, skipping nils and Discard. It returns
// Discard when nothing remains and the observer itself when only one does.
func Join(observers ...Observer) Observer {
	var out Fanout
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, discard:
			continue
		case Fanout:
			out = append(out, o...)
		default:
			out = append(out, o)
		}
	}

	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	default:
		return out
	}
}
