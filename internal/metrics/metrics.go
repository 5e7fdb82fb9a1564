// Package metrics exposes Prometheus instrumentation for the agent backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksTotal counts finished tasks by terminal outcome.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "operator_agent_tasks_total",
		Help: "Completed tasks by outcome (complete, error).",
	}, []string{"outcome"})

	// FallbacksTotal counts tasks that recovered through the blocking path.
	FallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_agent_fallbacks_total",
		Help: "Tasks that fell back from streaming to blocking execution.",
	})

	// EventsTotal counts normalized stream events by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "operator_agent_stream_events_total",
		Help: "Normalized stream events by kind.",
	}, []string{"kind"})

	// Connections tracks open WebSocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "operator_agent_ws_connections",
		Help: "Currently open WebSocket connections.",
	})
)
