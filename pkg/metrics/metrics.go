// Package metrics provides Prometheus metrics for the rate oracle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdapterRequestsTotal is a counter of adapter fetch attempts.
	AdapterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_requests_total",
			Help: "Total number of quote fetch attempts per adapter",
		},
		[]string{"source", "pair", "status"},
	)

	// AdapterRequestDuration is a histogram of adapter fetch latencies.
	AdapterRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_request_duration_seconds",
			Help:    "Latency of adapter quote fetches",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"source"},
	)

	// AdapterErrorsTotal is a counter of adapter failures by error kind.
	AdapterErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Total number of adapter failures by error kind",
		},
		[]string{"source", "kind"},
	)

	// AggregationsTotal is a counter of aggregation requests.
	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregations_total",
			Help: "Total number of price aggregation requests",
		},
		[]string{"pair", "status"},
	)

	// AggregationDuration is a histogram of end-to-end aggregation duration.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of price aggregation requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pair"},
	)

	// ConsensusConfidence is a gauge of the last computed consensus confidence.
	ConsensusConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consensus_confidence",
			Help: "Confidence score of the last consensus price per pair",
		},
		[]string{"pair"},
	)

	// ConsensusSources is a gauge of surviving source count per pair.
	ConsensusSources = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consensus_sources",
			Help: "Number of sources contributing to the last consensus price",
		},
		[]string{"pair"},
	)

	// OutlierRejectionsTotal is a counter of rejected outlier quotes.
	OutlierRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_rejections_total",
			Help: "Total number of outlier quotes rejected",
		},
		[]string{"pair"},
	)

	// CacheLookupsTotal is a counter of quote cache lookups.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of quote cache lookups",
		},
		[]string{"result"},
	)

	// SettlementSelectionsTotal counts settlement path selections.
	SettlementSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_selections_total",
			Help: "Total number of settlement path selections",
		},
		[]string{"protocol", "realtime"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)
)

// Init registers all collectors with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		AdapterRequestsTotal,
		AdapterRequestDuration,
		AdapterErrorsTotal,
		AggregationsTotal,
		AggregationDuration,
		ConsensusConfidence,
		ConsensusSources,
		OutlierRejectionsTotal,
		CacheLookupsTotal,
		SettlementSelectionsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheLookup records a quote cache lookup outcome.
// result is one of "hit", "stale_fallback", "miss", "agg_hit", "agg_miss".
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordSettlementSelection records a settlement path selection.
func RecordSettlementSelection(protocol string, realtime bool) {
	rt := "false"
	if realtime {
		rt = "true"
	}
	SettlementSelectionsTotal.WithLabelValues(protocol, rt).Inc()
}

// Recorder implements the aggregation engine's Observer interface on top of
// the Prometheus collectors above. The engine only sees the interface, so
// tests run against a no-op instead of a real registry.
type Recorder struct{}

// AdapterCall records the outcome of a single adapter fetch.
func (Recorder) AdapterCall(source, pair string, success bool, latency time.Duration, errKind string) {
	status := "ok"
	if !success {
		status = "error"
		AdapterErrorsTotal.WithLabelValues(source, errKind).Inc()
	}
	AdapterRequestsTotal.WithLabelValues(source, pair, status).Inc()
	AdapterRequestDuration.WithLabelValues(source).Observe(latency.Seconds())
}

// CacheLookup records a quote cache lookup outcome.
func (Recorder) CacheLookup(result string) {
	RecordCacheLookup(result)
}

// Aggregation records the outcome of a full aggregation request.
func (Recorder) Aggregation(pair string, sourceCount, outlierCount int, confidence float64, duration time.Duration) {
	AggregationsTotal.WithLabelValues(pair, "ok").Inc()
	AggregationDuration.WithLabelValues(pair).Observe(duration.Seconds())
	ConsensusConfidence.WithLabelValues(pair).Set(confidence)
	ConsensusSources.WithLabelValues(pair).Set(float64(sourceCount))
	for i := 0; i < outlierCount; i++ {
		OutlierRejectionsTotal.WithLabelValues(pair).Inc()
	}
}

// AggregationFailed records a terminal aggregation failure.
func (Recorder) AggregationFailed(pair string, duration time.Duration) {
	AggregationsTotal.WithLabelValues(pair, "failed").Inc()
	AggregationDuration.WithLabelValues(pair).Observe(duration.Seconds())
}
