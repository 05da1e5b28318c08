package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func serveThrough(t *testing.T, m *Metrics, path string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	wrapped := Middleware(m)(handler)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareSetsCorrelationHeader(t *testing.T) {
	withSpanRecorder(t)
	m, _ := newTestMetrics(t)

	rec := serveThrough(t, m, "/statusz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header not set")
	}
}

func TestMiddlewareRecordsDurationWithStatus(t *testing.T) {
	withSpanRecorder(t)
	m, reader := newTestMetrics(t)

	serveThrough(t, m, "/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rm := collect(t, reader)
	mtr := findMetric(rm, "chatcli.http.request.duration")
	if mtr == nil {
		t.Fatal("chatcli.http.request.duration not recorded")
	}
	hist, ok := mtr.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("unexpected metric data %T", mtr.Data)
	}
	dp := hist.DataPoints[0]
	if status, found := dp.Attributes.Value("status"); !found || status.AsInt64() != http.StatusServiceUnavailable {
		t.Errorf("status attribute = %v, want 503", dp.Attributes)
	}
	if path, found := dp.Attributes.Value("path"); !found || path.AsString() != "/readyz" {
		t.Errorf("path attribute = %v, want /readyz", dp.Attributes)
	}
}

func TestMiddlewarePreservesDownstreamStatus(t *testing.T) {
	withSpanRecorder(t)
	m, _ := newTestMetrics(t)

	rec := serveThrough(t, m, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestProbePathClassification(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/metrics", true},
		{"/healthz", true},
		{"/readyz", true},
		{"/statusz", false},
	}
	for _, tt := range tests {
		if got := probePath(tt.path); got != tt.want {
			t.Errorf("probePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
