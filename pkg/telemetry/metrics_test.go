package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	m.ObserveMount()
	m.ObserveMount()
	m.ObserveQuery("selector", time.Millisecond, 3, nil)
	m.ObserveQuery("selector", time.Millisecond, 0, errors.New("bad"))
	m.ObservePoll()
	m.ObserveWait(OutcomeResolved, 5*time.Millisecond)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"mounts", m.mountsTotal, 2},
		{"queries", m.queriesTotal.WithLabelValues("selector"), 2},
		{"query errors", m.queryErrors.WithLabelValues("selector"), 1},
		{"polls", m.waitPolls, 1},
		{"waits resolved", m.waitsTotal.WithLabelValues(OutcomeResolved), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	n, err := testutil.GatherAndCount(reg, "test_mounts_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 1 {
		t.Errorf("registered %d mounts_total series, want 1", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveMount()
	m.ObserveQuery("selector", 0, 0, nil)
	m.ObservePoll()
	m.ObserveWait(OutcomeTimeout, 0)
}
