package proxy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts proxy traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	cookies  *prometheus.CounterVec
	upstream prometheus.Histogram
}

// NewMetrics registers the proxy collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "graphql_proxy",
			Name:      "requests_total",
			Help:      "Proxied GraphQL requests by outcome.",
		}, []string{"outcome"}),
		cookies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "graphql_proxy",
			Name:      "set_cookies_total",
			Help:      "Upstream Set-Cookie headers by rewrite result.",
		}, []string{"result"}),
		upstream: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carepulse",
			Subsystem: "graphql_proxy",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of upstream GraphQL calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requests, m.cookies, m.upstream)
	return m
}

func (m *Metrics) observeRequest(outcome string) {
	if m != nil {
		m.requests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeCookies(relayed, skipped int) {
	if m == nil {
		return
	}
	m.cookies.WithLabelValues("rewritten").Add(float64(relayed))
	m.cookies.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) observeUpstream(d time.Duration) {
	if m != nil {
		m.upstream.Observe(d.Seconds())
	}
}
