// Package metrics exposes Prometheus collectors for the trigger loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

const metricPrefix = "pir_stairs_"

// Metrics holds the daemon's collectors and the registry they live in.
type Metrics struct {
	reg *prometheus.Registry

	triggers     *prometheus.CounterVec
	readErrors   prometheus.Counter
	presetErrors prometheus.Counter
	queueDrops   prometheus.Counter
	armed        prometheus.Gauge
	lockout      prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "triggers_total",
				Help: "Accepted triggers by direction",
			},
			[]string{"direction"},
		),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "pin_read_errors_total",
			Help: "Failed sensor pin reads",
		}),
		presetErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "preset_errors_total",
			Help: "Preset commands that could not be sent",
		}),
		queueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "event_queue_drops_total",
			Help: "Trigger events dropped because the dispatch queue was full",
		}),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "armed",
			Help: "1 when the controller accepts triggers, 0 during lockout",
		}),
		lockout: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "lockout_seconds",
			Help: "Configured lockout window",
		}),
	}

	m.reg.MustRegister(
		m.triggers,
		m.readErrors,
		m.presetErrors,
		m.queueDrops,
		m.armed,
		m.lockout,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create both series so dashboards show zero instead of no data
	m.triggers.WithLabelValues(string(stairs.DirectionUp))
	m.triggers.WithLabelValues(string(stairs.DirectionDown))
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Trigger counts an accepted trigger.
func (m *Metrics) Trigger(event stairs.TriggerEvent) {
	m.triggers.WithLabelValues(string(event.Direction)).Inc()
}

// ReadError counts a failed pin read.
func (m *Metrics) ReadError() {
	m.readErrors.Inc()
}

// PresetError counts a failed preset command.
func (m *Metrics) PresetError() {
	m.presetErrors.Inc()
}

// QueueDrop counts an event dropped by the dispatcher.
func (m *Metrics) QueueDrop() {
	m.queueDrops.Inc()
}

// Observe records the controller state and configured lockout.
func (m *Metrics) Observe(cfg stairs.Config, state stairs.State) {
	if state == stairs.StateArmed {
		m.armed.Set(1)
	} else {
		m.armed.Set(0)
	}
	m.lockout.Set(float64(cfg.LockoutSec))
}
