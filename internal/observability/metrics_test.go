package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsExposesDecisionCounts(t *testing.T) {
	m := NewMetrics()
	m.ObserveDecision(true)
	m.ObserveDecision(true)
	m.ObserveDecision(false)
	m.AuditDropped()

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="allow"} 2`) {
		t.Fatalf("missing allow count in:\n%s", body)
	}
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="deny"} 1`) {
		t.Fatalf("missing deny count in:\n%s", body)
	}
	if !strings.Contains(body, "aegis_audit_events_dropped_total 1") {
		t.Fatalf("missing dropped count in:\n%s", body)
	}
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/v1/decisions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/decisions", nil))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/broken", nil))

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_http_requests_total{code="200",route="/v1/decisions"} 1`) {
		t.Fatalf("missing request count in:\n%s", body)
	}
	if !strings.Contains(body, `aegis_http_requests_total{code="500",route="/broken"} 1`) {
		t.Fatalf("missing error count in:\n%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveDecision(true)
	m.AuditDropped()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("nil metrics middleware must pass through, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil metrics handler should report unavailable, got %d", rr.Code)
	}
}
