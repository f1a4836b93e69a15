package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.TrackHandshakeCompleted("tls1.3")
	m.TrackHandshakeFailed("handshake_failure")
	m.TrackAEADAuthFailure()
	m.TrackReplayDrop()
}

func TestTrackersIncrementCollectedMetrics(t *testing.T) {
	m := NewMetrics()
	m.TrackHandshakeCompleted("tls1.3")
	m.TrackAEADAuthFailure()
	m.TrackReplayDrop()

	ch := make(chan prometheus.Metric, 16)
	m.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	if count == 0 {
		t.Fatalf("expected at least one collected metric after tracking events")
	}
}
