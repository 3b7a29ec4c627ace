package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	requests          *prometheus.CounterVec
	cacheRequests     *prometheus.CounterVec
	upstreamErrors    *prometheus.CounterVec
	siriRejects       *prometheus.CounterVec
	oversizeBypass    *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	upstreamRoundTrip *prometheus.HistogramVec
	snapshotInfo      *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedproxy_requests_total",
		Help: "Total requests by resource and status class",
	}, []string{"resource", "status_class"})

	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedproxy_cache_requests_total",
		Help: "Total cache lookups by outcome",
	}, []string{"resource", "status"})

	upstreamErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedproxy_upstream_errors_total",
		Help: "Total upstream fetch failures",
	}, []string{"resource", "category"})

	siriRejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedproxy_siri_rejects_total",
		Help: "Total rejected SIRI requests",
	}, []string{"resource", "reason"})

	oversizeBypass := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedproxy_oversize_bypass_total",
		Help: "Total responses served uncached because the body exceeded the cache ceiling",
	}, []string{"resource"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedproxy_request_duration_seconds",
		Help:    "Request duration by policy kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	upstreamRoundTrip := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedproxy_upstream_roundtrip_seconds",
		Help:    "Upstream round trip duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})

	snapshotInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feedproxy_snapshot_info",
		Help: "Current configuration snapshot (value is always 1)",
	}, []string{"version", "source"})

	registry.MustRegister(
		requests, cacheRequests, upstreamErrors, siriRejects,
		oversizeBypass, requestDuration, upstreamRoundTrip, snapshotInfo,
	)

	return &Metrics{
		registry:          registry,
		requests:          requests,
		cacheRequests:     cacheRequests,
		upstreamErrors:    upstreamErrors,
		siriRejects:       siriRejects,
		oversizeBypass:    oversizeBypass,
		requestDuration:   requestDuration,
		upstreamRoundTrip: upstreamRoundTrip,
		snapshotInfo:      snapshotInfo,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(resource string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(labelOrNone(resource), statusClass(status)).Inc()
}

func (m *Metrics) RecordCache(resource, status string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(labelOrNone(resource), status).Inc()
}

func (m *Metrics) RecordUpstreamError(resource, category string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(labelOrNone(resource), category).Inc()
}

func (m *Metrics) RecordSiriReject(resource, reason string) {
	if m == nil {
		return
	}
	m.siriRejects.WithLabelValues(labelOrNone(resource), reason).Inc()
}

func (m *Metrics) RecordOversizeBypass(resource string) {
	if m == nil {
		return
	}
	m.oversizeBypass.WithLabelValues(labelOrNone(resource)).Inc()
}

func (m *Metrics) ObserveRequest(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(labelOrNone(kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveUpstreamRoundTrip(resource string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRoundTrip.WithLabelValues(labelOrNone(resource)).Observe(elapsed.Seconds())
}

func (m *Metrics) SetSnapshotInfo(version, source string) {
	if m == nil {
		return
	}
	m.snapshotInfo.Reset()
	m.snapshotInfo.WithLabelValues(labelOrNone(version), labelOrNone(source)).Set(1)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func labelOrNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
