// Package metrics exposes Prometheus instrumentation for the orchestration
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters. A single instance is constructed at
// process start and passed into each component constructor.
type Metrics struct {
	UpstreamAttempts *prometheus.CounterVec
	UpstreamRetries  *prometheus.CounterVec
	ToolDispatches   *prometheus.CounterVec
	PlanOutcomes     *prometheus.CounterVec
}

// New creates the pipeline metrics and registers them with the registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklens_upstream_attempts_total",
				Help: "Outbound model endpoint call attempts by operation and result.",
			},
			[]string{"operation", "result"},
		),
		UpstreamRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklens_upstream_retries_total",
				Help: "Retries performed after transient upstream failures.",
			},
			[]string{"operation"},
		),
		ToolDispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklens_tool_dispatches_total",
				Help: "Tool calls dispatched during the tool-call loop.",
			},
			[]string{"tool"},
		),
		PlanOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklens_plan_requests_total",
				Help: "Plan pipeline outcomes by mode and error type.",
			},
			[]string{"mode", "outcome"},
		),
	}
	reg.MustRegister(m.UpstreamAttempts, m.UpstreamRetries, m.ToolDispatches, m.PlanOutcomes)
	return m
}

// NewUnregistered creates metrics bound to a private registry, for tests and
// for components constructed without an explicit registry.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
