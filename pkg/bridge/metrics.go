package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/voneiden/gofsuipc/pkg/connection"
)

// Metrics holds the bridge Prometheus metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	Connections     prometheus.Gauge
	AreaBytes       prometheus.Histogram
	UpstreamState   prometheus.Gauge
	UpstreamOpens   prometheus.Counter
}

// NewMetrics registers the bridge metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsuipc_bridge_requests_total",
				Help: "Total number of bridge requests by operation and result code",
			},
			[]string{"op", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsuipc_bridge_request_duration_seconds",
				Help:    "Bridge request handling time in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"op"},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fsuipc_bridge_rate_limited_total",
				Help: "Total number of process requests rejected by the rate limit",
			},
		),
		Connections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fsuipc_bridge_connections",
				Help: "Number of open client connections",
			},
		),
		AreaBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fsuipc_bridge_area_bytes",
				Help:    "Size of processed request areas in bytes",
				Buckets: prometheus.ExponentialBuckets(32, 4, 7),
			},
		),
		UpstreamState: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fsuipc_bridge_upstream_state",
				Help: "Upstream link state: 0 disconnected, 1 connecting, 2 connected, 3 reconnecting, 4 closed",
			},
		),
		UpstreamOpens: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fsuipc_bridge_upstream_opens_total",
				Help: "Total number of successful upstream opens",
			},
		),
	}
}

func (m *Metrics) setUpstreamState(s connection.State) {
	if m == nil {
		return
	}
	m.UpstreamState.Set(float64(s))
}
