package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/toko-pos/internal/obs"
)

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("pos", registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics, Skip: []string{"/metrics"}}.Middleware)
	r.Get("/invoices/{invoiceNo}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/invoices/INV-20260309-000001", "/invoices/INV-20260309-000002", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	total := testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "/invoices/{invoiceNo}", "204"))
	if total != 2 {
		t.Fatalf("expected counter to be 2, got %v", total)
	}
	if n := testutil.CollectAndCount(metrics.Requests); n != 1 {
		t.Fatalf("expected one label set, got %d", n)
	}
	if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
		t.Fatalf("expected no in-flight requests, got %v", val)
	}
}

func TestNewHTTPMetricsReusesRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("pos", registry)
	second := obs.NewHTTPMetrics("pos", registry)
	if first.Requests != second.Requests {
		t.Fatal("expected registered counter to be reused")
	}
}

func TestQueryName(t *testing.T) {
	cases := map[string]string{
		"-- name: CreateInvoice :one\nINSERT INTO invoices": "CreateInvoice",
		"SELECT 1": "select",
		"   ":        "query",
	}
	for sql, want := range cases {
		if got := obs.QueryName(sql); got != want {
			t.Fatalf("QueryName(%q) = %q, want %q", sql, got, want)
		}
	}
}
