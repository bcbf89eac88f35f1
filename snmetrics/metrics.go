// Package snmetrics exposes Prometheus metrics for a swapnet Network.
//
// All methods on a nil *Metrics are no-ops,
// so a Network can be constructed without metrics.
package snmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swapnet"

// Outcome labels for dial and send results.
const (
	OutcomeOK        = "ok"
	OutcomeQueueFull = "queue_full"
	OutcomeTimeout   = "timeout"
	OutcomeRefused   = "refused"
	OutcomeFatal     = "protocol_not_supported"
	OutcomeExhausted = "exhausted"
	OutcomeDeadline  = "deadline"
	OutcomeCanceled  = "canceled"
	OutcomeStopped   = "stopped"
)

// Metrics is the set of collectors for one Network.
type Metrics struct {
	Enqueued  *prometheus.CounterVec
	QueueFull *prometheus.CounterVec

	DialResults *prometheus.CounterVec

	SendAttempts prometheus.Counter
	SendResults  *prometheus.CounterVec

	PingRTT prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// A nil reg leaves the collectors unregistered,
// which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "enqueued_total",
			Help:      "Requests accepted onto the outbound event queue, by kind.",
		}, []string{"kind"}),
		QueueFull: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "full_total",
			Help:      "Requests rejected because the outbound event queue was full, by kind.",
		}, []string{"kind"}),

		DialResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dial",
			Name:      "results_total",
			Help:      "Dial operations by outcome.",
		}, []string{"outcome"}),

		SendAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "send",
			Name:      "attempts_total",
			Help:      "Individual send attempts handed to the driver.",
		}),
		SendResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "send",
			Name:      "results_total",
			Help:      "Retrying send operations by terminal outcome.",
		}, []string{"outcome"}),

		PingRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ping",
			Name:      "rtt_seconds",
			Help:      "Round trip times reported by the driver.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Enqueued, m.QueueFull,
			m.DialResults,
			m.SendAttempts, m.SendResults,
			m.PingRTT,
		)
	}

	return m
}

func (m *Metrics) ObserveEnqueued(kind string) {
	if m == nil {
		return
	}
	m.Enqueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveQueueFull(kind string) {
	if m == nil {
		return
	}
	m.QueueFull.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDial(outcome string) {
	if m == nil {
		return
	}
	m.DialResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSendAttempt() {
	if m == nil {
		return
	}
	m.SendAttempts.Inc()
}

func (m *Metrics) ObserveSend(outcome string) {
	if m == nil {
		return
	}
	m.SendResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePingSeconds(s float64) {
	if m == nil {
		return
	}
	m.PingRTT.Observe(s)
}
