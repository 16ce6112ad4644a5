package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the acceptance layer's Prometheus collectors. A nil *Metrics
// is valid and records nothing, so instrumentation never needs guarding.
type Metrics struct {
	acceptedTotal    prometheus.Counter
	rejectedTotal    prometheus.Counter
	activeSockets    prometheus.Gauge
	framesTotal      prometheus.Counter
	rateLimitedTotal prometheus.Counter
}

// NewMetrics registers the acceptance-layer collectors with the given
// registerer under the serverroom namespace. Pass
// prometheus.DefaultRegisterer for the usual global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		acceptedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "serverroom",
			Name:      "sockets_accepted_total",
			Help:      "Total number of WebSocket connections accepted",
		}),
		rejectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "serverroom",
			Name:      "sockets_rejected_total",
			Help:      "Total number of connections refused before upgrade",
		}),
		activeSockets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "serverroom",
			Name:      "sockets_active",
			Help:      "Number of currently open sockets",
		}),
		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "serverroom",
			Name:      "frames_received_total",
			Help:      "Total number of inbound frames dispatched",
		}),
		rateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "serverroom",
			Name:      "sockets_rate_limited_total",
			Help:      "Total number of sockets closed for exceeding the rate limit",
		}),
	}
}

func (m *Metrics) IncAccepted() {
	if m == nil {
		return
	}
	m.acceptedTotal.Inc()
	m.activeSockets.Inc()
}

func (m *Metrics) IncRejected() {
	if m == nil {
		return
	}
	m.rejectedTotal.Inc()
}

func (m *Metrics) DecActive() {
	if m == nil {
		return
	}
	m.activeSockets.Dec()
}

func (m *Metrics) IncFrames() {
	if m == nil {
		return
	}
	m.framesTotal.Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}
