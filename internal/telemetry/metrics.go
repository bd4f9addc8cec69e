package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/buildgrid/internal/node"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of build spans.
const TracerName = "github.com/specialistvlad/buildgrid"

// Tracer returns the tracer of the globally registered otel provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Metrics holds the Prometheus collectors of a build process. It satisfies
// the scheduler's Observer interface.
type Metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	tasksRunning prometheus.Gauge
	buildsTotal  *prometheus.CounterVec
	buildSeconds prometheus.Histogram

	registry *prometheus.Registry

	mu      sync.Mutex
	running map[string]bool
}

// NewMetrics creates a metrics instance with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildgrid_tasks_total",
				Help: "Total number of tasks that reached a final state, by state",
			},
			[]string{"state"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buildgrid_task_duration_seconds",
				Help:    "Duration of executed task actions",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
			},
			[]string{"state"},
		),
		tasksRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildgrid_tasks_running",
				Help: "Number of task actions currently running",
			},
		),
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildgrid_builds_total",
				Help: "Total number of builds by outcome",
			},
			[]string{"outcome"},
		),
		buildSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "buildgrid_build_duration_seconds",
				Help:    "Wall-clock duration of builds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		registry: registry,
		running:  make(map[string]bool),
	}

	registry.MustRegister(
		m.tasksTotal,
		m.taskDuration,
		m.tasksRunning,
		m.buildsTotal,
		m.buildSeconds,
	)
	return m
}

// TaskStarted records a dispatched action.
func (m *Metrics) TaskStarted(id string) {
	m.mu.Lock()
	m.running[id] = true
	m.mu.Unlock()
	m.tasksRunning.Inc()
}

// TaskFinished records a task's final state. Only tasks that were started
// contribute to the running gauge and the duration histogram.
func (m *Metrics) TaskFinished(id string, state node.State, elapsed time.Duration) {
	m.tasksTotal.WithLabelValues(state.String()).Inc()

	m.mu.Lock()
	started := m.running[id]
	delete(m.running, id)
	m.mu.Unlock()

	if started {
		m.tasksRunning.Dec()
		m.taskDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
	}
}

// RecordBuild records the outcome of one build invocation.
func (m *Metrics) RecordBuild(failed bool, duration time.Duration) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	m.buildsTotal.WithLabelValues(outcome).Inc()
	m.buildSeconds.Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
