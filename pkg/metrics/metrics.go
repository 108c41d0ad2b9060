// Package metrics counts capture outcomes and can dump them in the Prometheus
// textfile format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a private registry so tests and parallel commands do not share
// global state.
type Metrics struct {
	registry *prometheus.Registry

	captures    *prometheus.CounterVec
	syncs       *prometheus.CounterVec
	stageErrors *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lwd_captures_total",
			Help: "Capture pipeline runs by final state.",
		}, []string{"state"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lwd_sync_total",
			Help: "Knowledge-base forwarding outcomes.",
		}, []string{"status"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lwd_stage_errors_total",
			Help: "Pipeline failures by the stage that failed.",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lwd_capture_duration_seconds",
			Help:    "Wall time of one capture pipeline run.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
	}
	m.registry.MustRegister(m.captures, m.syncs, m.stageErrors, m.duration)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CaptureFinished(state string, elapsed time.Duration) {
	m.captures.WithLabelValues(state).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) StageFailed(stage string) {
	m.stageErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) SyncFinished(status string) {
	m.syncs.WithLabelValues(status).Inc()
}

// WriteFile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
