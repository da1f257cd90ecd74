package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelMode   = "mode"
	labelResult = "result"
)

// metrics holds the daemon's Prometheus collectors. A nil *metrics is valid
// and records nothing.
type metrics struct {
	spins     *prometheus.CounterVec
	ignored   prometheus.Counter
	rejected  prometheus.Counter
	results   *prometheus.CounterVec
	spinning  prometheus.Gauge
	wsClients prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		spins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prizewheel_spins_total",
			Help: "Spins started, by mode (random or forced).",
		}, []string{labelMode}),
		ignored: f.NewCounter(prometheus.CounterOpts{
			Name: "prizewheel_spins_ignored_total",
			Help: "Spin requests ignored because a spin was in flight.",
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "prizewheel_spin_errors_total",
			Help: "Spin requests rejected with a configuration error.",
		}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prizewheel_results_total",
			Help: "Completed spins by winning label.",
		}, []string{labelResult}),
		spinning: f.NewGauge(prometheus.GaugeOpts{
			Name: "prizewheel_spinning",
			Help: "1 while a spin is in flight.",
		}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "prizewheel_ws_clients",
			Help: "Connected websocket state clients.",
		}),
	}
}

func (m *metrics) spinStarted(forced bool) {
	if m == nil {
		return
	}
	mode := "random"
	if forced {
		mode = "forced"
	}
	m.spins.WithLabelValues(mode).Inc()
}

func (m *metrics) spinIgnored() {
	if m == nil {
		return
	}
	m.ignored.Inc()
}

func (m *metrics) spinRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *metrics) spinFinished(label string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(label).Inc()
}

func (m *metrics) setSpinning(spinning bool) {
	if m == nil {
		return
	}
	if spinning {
		m.spinning.Set(1)
	} else {
		m.spinning.Set(0)
	}
}

func (m *metrics) setWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
