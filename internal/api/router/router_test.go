package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-voice-agent/internal/address"
	"github.com/brightline-health/intake-voice-agent/internal/host"
	"github.com/brightline-health/intake-voice-agent/internal/intake"
	"github.com/brightline-health/intake-voice-agent/internal/session"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

type stubValidator struct{}

func (stubValidator) Validate(context.Context, address.Request) address.Outcome {
	return address.Outcome{Status: address.StatusValid}
}
func (stubValidator) Configured() bool { return true }

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := logging.NewWithWriter("error", io.Discard)
	reg, err := intake.NewIntakeGraph(intake.GraphConfig{Validator: stubValidator{}, Logger: logger})
	require.NoError(t, err)

	engine := intake.NewEngine(reg, logger, nil)
	store := session.NewMemoryStore(time.Minute)
	promReg := prometheus.NewRegistry()

	return New(&Config{
		Logger:         logger,
		SessionHandler: host.NewHandler(engine, store, nil, logger),
		MetricsHandler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsMounted(t *testing.T) {
	r := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	r := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
