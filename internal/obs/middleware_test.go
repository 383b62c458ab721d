package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-checkout/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("pos", []float64{10, 1}, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics, SkipPrefixes: []string{"/metrics"}}.Middleware)
	r.Get("/api/v1/total", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/api/v1/total", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/total", "204")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.ReqTotal))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("pos", nil, registry)
	second := obs.NewHTTPMetrics("pos", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV("  "))
	require.Equal(t, []float64{5, 10.5}, obs.ParseBucketsCSV("5, x, -1, 0, 10.5,"))
}

func TestDomainMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("pos", registry)

	obs.ObserveScan("ok")
	obs.ObserveScan("ok")
	obs.ObserveScan("not_found")
	obs.ObserveTotal(3250)
	obs.ObserveReset("current")
	obs.ObservePublish("invalid")

	require.Equal(t, 2.0, testutil.ToFloat64(obs.ScanTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.ScanTotal.WithLabelValues("not_found")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartResetTotal.WithLabelValues("current")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CatalogPublishTotal.WithLabelValues("invalid")))
	require.Equal(t, 1, testutil.CollectAndCount(obs.CartTotalAmount))
}

func TestRequestLoggerTagsCart(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "info")
	handler := obs.RequestLogger{Logger: logger, CartID: func() string { return "cart-1" }}.
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("ok"))
		}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "cart-1", entry["cart_id"])
	require.Equal(t, float64(http.StatusCreated), entry["status"])
	require.Equal(t, float64(2), entry["bytes"])
}

func TestNewLoggerToRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	require.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	require.Contains(t, buf.String(), "shown")
}
