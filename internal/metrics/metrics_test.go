package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectors(t *testing.T) {
	m := New()
	m.ObserveIngest("S1")
	m.ObserveIngest("S1")
	m.ObserveRejected("unknown_secret")
	m.ObserveChart("raw", "ok")

	if got := Value(m.AlertsIngested.WithLabelValues("S1")); got != 2 {
		t.Fatalf("ingested = %v", got)
	}
	if got := Value(m.IngestRejected.WithLabelValues("unknown_secret")); got != 1 {
		t.Fatalf("rejected = %v", got)
	}

	m.SetStored(map[string]int64{"S1": 3, "S2": 1})
	m.SetStored(map[string]int64{"S1": 4})
	if got := Value(m.StoredAlerts.WithLabelValues("S1")); got != 4 {
		t.Fatalf("stored S1 = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/health", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `alertdesk_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveIngest("S1")
	m.SetStored(map[string]int64{"S1": 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
}
