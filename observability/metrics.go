package observability

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver aggregates events into Prometheus collectors. It relies on
// the well-known Data keys (KeyNode, KeyTool, KeyOutcome, KeyLabel,
// KeyDuration) rather than on specific event types.
type MetricsObserver struct {
	events   *prometheus.CounterVec
	nodes    *prometheus.CounterVec
	routes   *prometheus.CounterVec
	tools    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsObserver creates the collectors under the given namespace and
// registers them with reg.
func NewMetricsObserver(namespace string, reg prometheus.Registerer) (*MetricsObserver, error) {
	m := &MetricsObserver{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of observability events by type and level.",
			},
			[]string{"type", "level"},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of graph node visits.",
			},
			[]string{"node"},
		),
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_total",
				Help:      "Total number of routing decisions by label.",
			},
			[]string{"label"},
		),
		tools: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool invocations by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Duration of completed operations by event type.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}

	for _, c := range []prometheus.Collector{m.events, m.nodes, m.routes, m.tools, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	typ := string(event.Type)
	m.events.WithLabelValues(typ, event.Level.String()).Inc()

	if node, ok := event.Data[KeyNode].(string); ok && strings.HasSuffix(typ, ".start") {
		m.nodes.WithLabelValues(node).Inc()
	}

	if label, ok := event.Data[KeyLabel].(string); ok {
		m.routes.WithLabelValues(label).Inc()
	}

	if tool, ok := event.Data[KeyTool].(string); ok {
		if outcome, ok := event.Data[KeyOutcome].(string); ok {
			m.tools.WithLabelValues(tool, outcome).Inc()
		}
	}

	if d, ok := event.Data[KeyDuration].(time.Duration); ok {
		m.duration.WithLabelValues(typ).Observe(d.Seconds())
	}
}

// NodeVisits exposes the node visit counter.
func (m *MetricsObserver) NodeVisits() *prometheus.CounterVec { return m.nodes }

// Routes exposes the routing decision counter.
func (m *MetricsObserver) Routes() *prometheus.CounterVec { return m.routes }

// ToolCalls exposes the tool invocation counter.
func (m *MetricsObserver) ToolCalls() *prometheus.CounterVec { return m.tools }

// Durations exposes the duration histogram.
func (m *MetricsObserver) Durations() *prometheus.HistogramVec { return m.duration }
