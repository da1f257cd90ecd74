package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// metricValue returns the value of the named metric whose labels match.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	if len(m.GetLabel()) != len(want) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)

	m.spinStarted(false)
	m.spinStarted(true)
	m.spinStarted(true)
	m.spinIgnored()
	m.spinRejected()
	m.spinFinished("Free Shipping")
	m.setSpinning(true)
	m.setWSClients(3)

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"prizewheel_spins_total", map[string]string{labelMode: "random"}, 1},
		{"prizewheel_spins_total", map[string]string{labelMode: "forced"}, 2},
		{"prizewheel_spins_ignored_total", nil, 1},
		{"prizewheel_spin_errors_total", nil, 1},
		{"prizewheel_results_total", map[string]string{labelResult: "Free Shipping"}, 1},
		{"prizewheel_spinning", nil, 1},
		{"prizewheel_ws_clients", nil, 3},
	}
	for _, c := range checks {
		if got := metricValue(t, reg, c.name, c.labels); got != c.want {
			t.Fatalf("%s%v = %v, want %v", c.name, c.labels, got, c.want)
		}
	}

	m.setSpinning(false)
	if got := metricValue(t, reg, "prizewheel_spinning", nil); got != 0 {
		t.Fatalf("prizewheel_spinning = %v after stop, want 0", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics
	m.spinStarted(true)
	m.spinIgnored()
	m.spinRejected()
	m.spinFinished("x")
	m.setSpinning(true)
	m.setWSClients(1)
}

func TestDaemon_MetricsFollowSpin(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	d := startTestDaemon(t, m)

	d.events <- SpinRequested{Winner: "15% off", Origin: "test"}
	d.waitForBroadcast(t, 2*time.Second, func(b StateBroadcast) bool {
		_, ok := b.(BroadcastSpinFinished)
		return ok
	})

	if got := metricValue(t, reg, "prizewheel_spins_total", map[string]string{labelMode: "forced"}); got != 1 {
		t.Fatalf("forced spins = %v, want 1", got)
	}
	if got := metricValue(t, reg, "prizewheel_results_total", map[string]string{labelResult: "15% off"}); got != 1 {
		t.Fatalf("results{15%% off} = %v, want 1", got)
	}
}
