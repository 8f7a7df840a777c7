package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"zaguan_client_requests_total":                    false,
		"zaguan_client_request_duration_seconds":          false,
		"zaguan_client_retries_total":                     false,
		"zaguan_client_streams_active":                    false,
		"zaguan_client_stream_events_total":               false,
		"zaguan_client_stream_frames_dropped_total":       false,
		"zaguan_client_errors_total":                      false,
		"zaguan_mockgateway_requests_total":               false,
		"zaguan_mockgateway_streaming_connections_active": false,
	}

	// Vectors only appear after their first observation.
	ObserveAttempt("GET", "test", 200, 100*time.Millisecond)
	RetriesTotal.WithLabelValues("test", "network").Inc()
	StreamEventsTotal.WithLabelValues("test").Inc()
	StreamFramesDroppedTotal.WithLabelValues("test").Inc()
	ErrorsTotal.WithLabelValues("api_error").Inc()
	GatewayRequestsTotal.WithLabelValues("GET", "2xx").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		0:   "error",
		-1:  "error",
		200: "2xx",
		204: "2xx",
		429: "4xx",
		503: "5xx",
	}
	for status, want := range tests {
		if got := StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestObserveAttempt(t *testing.T) {
	beforeCount := counterValue(t, RequestsTotal, "POST", "/v1/chat/completions", "5xx")
	beforeErr := counterValue(t, RequestsTotal, "POST", "/v1/chat/completions", "error")
	beforeHist := histogramCount(t, RequestDuration, "POST", "/v1/chat/completions")

	ObserveAttempt("POST", "/v1/chat/completions", 503, 10*time.Millisecond)
	ObserveAttempt("POST", "/v1/chat/completions", 0, time.Millisecond)

	if d := counterValue(t, RequestsTotal, "POST", "/v1/chat/completions", "5xx") - beforeCount; d != 1 {
		t.Errorf("5xx delta = %f, want 1", d)
	}
	if d := counterValue(t, RequestsTotal, "POST", "/v1/chat/completions", "error") - beforeErr; d != 1 {
		t.Errorf("error delta = %f, want 1", d)
	}
	if d := histogramCount(t, RequestDuration, "POST", "/v1/chat/completions") - beforeHist; d != 2 {
		t.Errorf("histogram delta = %d, want 2", d)
	}
}

// TestMiddlewareRecordsRequestCount verifies that the middleware increments
// the request counter for each served request.
func TestMiddlewareRecordsRequestCount(t *testing.T) {
	before := counterValue(t, GatewayRequestsTotal, "GET", "2xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/v1/models", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, GatewayRequestsTotal, "GET", "2xx")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareStreamingGauge verifies that the streaming connections gauge
// increments during a streaming request and decrements after completion.
func TestMiddlewareStreamingGauge(t *testing.T) {
	baseline := gaugeValue(t, GatewayStreamingConnections)

	inHandler := make(chan float64, 1)
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler <- gaugeValue(t, GatewayStreamingConnections)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	duringRequest := <-inHandler
	afterRequest := gaugeValue(t, GatewayStreamingConnections)

	if duringRequest != baseline+1 {
		t.Errorf("expected streaming gauge=%f during request, got %f", baseline+1, duringRequest)
	}
	if afterRequest != baseline {
		t.Errorf("expected streaming gauge=%f after request, got %f", baseline, afterRequest)
	}
}

// TestMiddlewareCapturesStatusCode verifies that non-200 status codes are
// captured correctly in the status label.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	before := counterValue(t, GatewayRequestsTotal, "POST", "4xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, GatewayRequestsTotal, "POST", "4xx")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestStatusWriterFlush verifies that the statusWriter Flush method
// delegates to the underlying writer when it implements http.Flusher.
func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
