package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"debtster_routes/internal/handlers"
	"debtster_routes/internal/metrics"
	"debtster_routes/internal/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOnly() *handlers.Handlers {
	return handlers.New(nil, nil, nil, nil, "", nil, testutil.Logger())
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	r := NewRouter(healthOnly(), nil)

	before := promtest.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "debtster_routes_http_requests_total")
}

func TestRouterAnswersPreflight(t *testing.T) {
	r := NewRouter(healthOnly(), []string{"https://app.example"})

	req := httptest.NewRequest(http.MethodOptions, "/payments", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewServer(Options{Port: "0", ShutdownTimeout: time.Second}, healthOnly())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
