package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napryag/tg_physio_bot/pkg/metrics"
)

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		code   int
		status string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"healthy", map[string]Check{"sessions": func(context.Context) error { return nil }}, http.StatusOK, "ok"},
		{"down", map[string]Check{"sessions": func(context.Context) error { return errors.New("dial tcp: refused") }}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewRouter(prometheus.NewRegistry(), tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveSubmission("ok")

	rec := httptest.NewRecorder()
	NewRouter(reg, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `physio_scheduling_submissions_total{outcome="ok"} 1`))
}
