package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/observability"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		text  string
		slog  slog.Level
	}{
		{level: 1, text: "TRACE", slog: slog.LevelDebug},
		{level: observability.LevelVerbose, text: "DEBUG", slog: slog.LevelDebug},
		{level: observability.LevelInfo, text: "INFO", slog: slog.LevelInfo},
		{level: observability.LevelWarning, text: "WARN", slog: slog.LevelWarn},
		{level: observability.LevelError, text: "ERROR", slog: slog.LevelError},
		{level: 21, text: "FATAL", slog: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.level.String())
			assert.Equal(t, tt.slog, tt.level.SlogLevel())
		})
	}
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	for _, name := range []string{"", observability.ObserverSlog} {
		obs, err := observability.Named(name, logger)
		require.NoError(t, err)
		assert.IsType(t, &observability.SlogObserver{}, obs)
	}

	obs, err := observability.Named(observability.ObserverNoop, logger)
	require.NoError(t, err)
	obs.OnEvent(context.Background(), observability.Event{Type: "turn.start", Level: observability.LevelError})
	assert.Zero(t, buf.Len(), "noop observer writes nothing")

	_, err = observability.Named("zipkin", logger)
	assert.ErrorIs(t, err, observability.ErrUnknownObserver)
}

func TestJoin(t *testing.T) {
	a, b := &observability.Recorder{}, &observability.Recorder{}

	assert.Equal(t, observability.Discard, observability.Join())
	assert.Equal(t, observability.Discard, observability.Join(nil, observability.Discard))
	assert.Same(t, a, observability.Join(nil, a, observability.Discard))

	joined := observability.Join(a, observability.Join(b, nil), nil)
	require.IsType(t, observability.Fanout{}, joined)
	assert.Len(t, joined.(observability.Fanout), 2, "nested fanouts are flattened")

	ctx := context.Background()
	joined.OnEvent(ctx, observability.Event{Type: "supervisor.route"})
	joined.OnEvent(ctx, observability.Event{Type: "tool.complete"})

	for _, rec := range []*observability.Recorder{a, b} {
		events := rec.Events()
		require.Len(t, events, 2)
		assert.Equal(t, observability.EventType("supervisor.route"), events[0].Type)
		assert.Equal(t, observability.EventType("tool.complete"), events[1].Type)
	}
}

func TestSlogObserver_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   observability.Level
		handler slog.Level
		logged  bool
	}{
		{name: "verbose at debug", level: observability.LevelVerbose, handler: slog.LevelDebug, logged: true},
		{name: "verbose at info", level: observability.LevelVerbose, handler: slog.LevelInfo},
		{name: "info at warn", level: observability.LevelInfo, handler: slog.LevelWarn},
		{name: "error at error", level: observability.LevelError, handler: slog.LevelError, logged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.handler}))

			observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
				Type:  "node.start",
				Level: tt.level,
			})
			assert.Equal(t, tt.logged, buf.Len() > 0, buf.String())
		})
	}
}

func TestSlogObserver_Record(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:      "tool.complete",
		Level:     observability.LevelWarning,
		Timestamp: at,
		Source:    "CartManager.tools",
		Data: map[string]any{
			observability.KeyTool:     "checkout",
			observability.KeyError:    errors.New("cart is empty"),
			observability.KeyDuration: 1500 * time.Millisecond,
			"actor":                   int64(42),
		},
	})

	line := buf.String()
	assert.Contains(t, line, `"time":"2026-03-14T09:30:00Z"`)
	assert.Contains(t, line, `"level":"WARN"`)
	assert.Contains(t, line, `"msg":"tool.complete"`)
	assert.Contains(t, line, `"source":"CartManager.tools"`)
	assert.Contains(t, line, `"error":"cart is empty"`)
	assert.Contains(t, line, `"duration":1500000000`)

	// Attributes follow sorted key order.
	order := []string{`"actor"`, `"duration"`, `"error"`, `"tool"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(line, key)
		require.Greater(t, idx, last, "key %s out of order in %s", key, line)
		last = idx
	}
}

func TestEmit(t *testing.T) {
	rec := &observability.Recorder{}
	ctx := context.Background()

	observability.Emit(ctx, rec, "kernel.turn.start", observability.LevelInfo, "kernel", map[string]any{"actor": 42})
	observability.Emit(ctx, nil, "ignored", observability.LevelInfo, "kernel", nil)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero(), "Emit stamps the event")
	assert.Equal(t, "kernel", events[0].Source)
	assert.Equal(t, 42, events[0].Data["actor"])
}

func TestRecorder(t *testing.T) {
	rec := &observability.Recorder{}
	ctx := context.Background()

	rec.OnEvent(ctx, observability.Event{Type: "node.start"})
	rec.OnEvent(ctx, observability.Event{Type: "node.complete"})
	rec.OnEvent(ctx, observability.Event{Type: "node.start"})

	assert.Len(t, rec.OfType("node.start"), 2)
	assert.Len(t, rec.Events(), 3)

	rec.Reset()
	assert.Empty(t, rec.Events())
}

func TestLogger(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, observability.ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}

	var buf bytes.Buffer
	logger := observability.NewLoggerTo(&buf, slog.LevelInfo, "json")
	logger.Debug("hidden")
	logger.Error("checkout failed", "error", errors.New("boom"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"err":"boom"`, "error key is renamed")
}
