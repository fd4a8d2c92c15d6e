package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pneuma-servo-core/utils"
)

// loopMetrics exposes the loop's observable state on a Prometheus endpoint.
// Optional: built only when a metrics listen address is configured.
type loopMetrics struct {
	position prometheus.Gauge
	setpoint prometheus.Gauge
	signal   prometheus.Gauge

	cycles        prometheus.Counter
	missedSamples prometheus.Counter
}

func newLoopMetrics() *loopMetrics {
	m := &loopMetrics{
		position: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "servo",
			Name:      "cylinder_position_normalized",
			Help:      "Latest normalized position sample in [0,1].",
		}),
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "servo",
			Name:      "setpoint_normalized",
			Help:      "Current operator setpoint in [0,1].",
		}),
		signal: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "servo",
			Name:      "control_signal",
			Help:      "Latest PI control signal (signed, unbounded).",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "servo",
			Name:      "control_cycles_total",
			Help:      "Completed control cycles.",
		}),
		missedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "servo",
			Name:      "missed_samples_total",
			Help:      "Cycles commanded neutral because no sensor sample was available.",
		}),
	}
	prometheus.MustRegister(m.position, m.setpoint, m.signal, m.cycles, m.missedSamples)
	return m
}

func (m *loopMetrics) observe(sample float64, haveSample bool, setpoint, signal float64) {
	if haveSample {
		m.position.Set(sample)
	} else {
		m.missedSamples.Inc()
	}
	m.setpoint.Set(setpoint)
	m.signal.Set(signal)
	m.cycles.Inc()
}

// serveMetrics starts the /metrics endpoint in the background. Serving
// errors are logged, not fatal; the control loop does not depend on it.
func serveMetrics(addr string, log *utils.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("Metrics on http://%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Metrics server: %v", err)
		}
	}()
}
