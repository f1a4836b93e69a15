// Package metrics provides an optional Prometheus collector for
// handshake and record-layer outcomes. A Connection given a nil
// *Metrics simply skips every Track call; nothing in this core requires
// metrics to function.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "tlscore"

// Metrics tracks counters only, never anything gauge- or
// histogram-shaped: this core observes outcomes, not latencies.
type Metrics struct {
	handshakesCompleted *prometheus.CounterVec
	handshakesFailed    *prometheus.CounterVec
	aeadAuthFailures    prometheus.Counter
	replayDrops         prometheus.Counter
}

// NewMetrics creates an unregistered Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		handshakesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "handshakes_completed_total",
			Help:      "Handshakes that reached the connected state, by negotiated protocol version.",
		}, []string{"version"}),
		handshakesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "handshakes_failed_total",
			Help:      "Handshakes that ended in a fatal alert, by alert description.",
		}, []string{"alert"}),
		aeadAuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "aead_auth_failures_total",
			Help:      "Records rejected for failing AEAD authentication.",
		}),
		replayDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "replay_drops_total",
			Help:      "DTLS records dropped by the per-epoch replay bitmap.",
		}),
	}
}

// Register registers m's counters with the default Prometheus registry.
func (m *Metrics) Register() error {
	return prometheus.Register(m)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.handshakesCompleted.Collect(ch)
	m.handshakesFailed.Collect(ch)
	m.aeadAuthFailures.Collect(ch)
	m.replayDrops.Collect(ch)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(m, descs)
}

// TrackHandshakeCompleted records a successful handshake for the given
// negotiated version string (e.g. "tls1.3", "dtls1.2"). A nil receiver
// is a no-op, so callers never need a "metrics enabled" branch.
func (m *Metrics) TrackHandshakeCompleted(version string) {
	if m == nil {
		return
	}
	m.handshakesCompleted.With(prometheus.Labels{"version": version}).Inc()
}

// TrackHandshakeFailed records a handshake aborted by the named fatal
// alert.
func (m *Metrics) TrackHandshakeFailed(alert string) {
	if m == nil {
		return
	}
	m.handshakesFailed.With(prometheus.Labels{"alert": alert}).Inc()
}

// TrackAEADAuthFailure records one record rejected by AEAD Open.
func (m *Metrics) TrackAEADAuthFailure() {
	if m == nil {
		return
	}
	m.aeadAuthFailures.Inc()
}

// TrackReplayDrop records one record rejected by the replay bitmap.
func (m *Metrics) TrackReplayDrop() {
	if m == nil {
		return
	}
	m.replayDrops.Inc()
}
