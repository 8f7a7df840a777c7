// Package observability provides Prometheus metrics for the SDK client and
// HTTP middleware for the mock gateway.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts gateway attempts by method, endpoint and status
	// class. Attempts that got no response are labelled "error".
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaguan_client_requests_total",
			Help: "Gateway request attempts",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration records attempt duration in seconds, up to response
	// headers for streams.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zaguan_client_request_duration_seconds",
			Help:    "Gateway request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RetriesTotal counts retries scheduled by the retry policy.
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaguan_client_retries_total",
			Help: "Retries scheduled",
		},
		[]string{"endpoint", "reason"},
	)

	// StreamsActive tracks streams whose body has not been released yet.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zaguan_client_streams_active",
			Help: "Open streaming responses",
		},
	)

	// StreamEventsTotal counts events delivered to stream consumers.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaguan_client_stream_events_total",
			Help: "Stream events delivered",
		},
		[]string{"endpoint"},
	)

	// StreamFramesDroppedTotal counts malformed frames skipped by the decoder.
	StreamFramesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaguan_client_stream_frames_dropped_total",
			Help: "Malformed stream frames dropped",
		},
		[]string{"endpoint"},
	)

	// ErrorsTotal counts errors returned to callers by taxonomy kind.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaguan_client_errors_total",
			Help: "Errors returned to callers",
		},
		[]string{"kind"},
	)

	// GatewayRequestsTotal counts requests served by the mock gateway.
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaguan_mockgateway_requests_total",
			Help: "Mock gateway requests",
		},
		[]string{"method", "status"},
	)

	// GatewayStreamingConnections tracks SSE responses the mock gateway is
	// still writing.
	GatewayStreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zaguan_mockgateway_streaming_connections_active",
			Help: "Active mock gateway streaming connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RetriesTotal,
		StreamsActive,
		StreamEventsTotal,
		StreamFramesDroppedTotal,
		ErrorsTotal,
		GatewayRequestsTotal,
		GatewayStreamingConnections,
	)
}

// StatusClass returns a label like "2xx" or "5xx"; 0 maps to "error".
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// ObserveAttempt records one request attempt. status is 0 when the attempt
// got no response.
func ObserveAttempt(method, endpoint string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, endpoint, StatusClass(status)).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
