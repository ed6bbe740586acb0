package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// SlogObserver writes events as log records. The event type is the message,
// the event timestamp is the record time, and Data keys become attributes
// in sorted order.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver returns an observer logging through logger, or through
// slog.Default at emit time when logger is nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	level := event.Level.SlogLevel()
	handler := logger.Handler()
	if !handler.Enabled(ctx, level) {
		return
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	record := slog.NewRecord(ts, level, string(event.Type), 0)
	record.AddAttrs(slog.String("source", event.Source))
	for _, key := range slices.Sorted(maps.Keys(event.Data)) {
		record.AddAttrs(dataAttr(key, event.Data[key]))
	}
	_ = handler.Handle(ctx, record)
}

func dataAttr(key string, value any) slog.Attr {
	switch v := value.(type) {
	case error:
		return slog.String(key, v.Error())
	case time.Duration:
		return slog.Duration(key, v)
	default:
		return slog.Any(key, v)
	}
}
