package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"smartcapi-client/internal/observability"
)

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/navigate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/navigate", "418")
	before := promtestutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/navigate?to=/database", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestMetrics_UnmatchedPathIsCollapsed(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/health", okHandler().ServeHTTP)

	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404")
	before := promtestutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some/random/path", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestMetrics_WithoutRouter(t *testing.T) {
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodPost, unmatchedPath, "200")
	before := promtestutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	Metrics()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestMetrics_DefaultStatusCodeIsOK(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("body"))
	assert.Equal(t, http.StatusOK, rw.statusCode)
}

func TestMetrics_WriteHeaderKeepsFirstStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusCreated, rw.statusCode)
}

func TestMetrics_ResponseWriterHijackNotImplemented(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}
