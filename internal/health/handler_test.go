// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) Ping(context.Context) error {
	return s.err
}

func TestLivenessReportsUptime(t *testing.T) {
	h := NewHandler(nil, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.started = start
	h.now = func() time.Time { return start.Add(90 * time.Second) }

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.InDelta(t, 90.0, body.Uptime, 0.001)
	assert.True(t, body.Timestamp.Equal(start.Add(90*time.Second)))
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		db     Checker
		redis  Checker
		status int
		want   string
	}{
		{"healthy", stubChecker{}, stubChecker{}, http.StatusOK, "ok"},
		{"redis down", stubChecker{}, stubChecker{err: errors.New("refused")}, http.StatusServiceUnavailable, "degraded"},
		{"db missing", nil, stubChecker{}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.db, tt.redis)

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.status, rec.Code)

			var body ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Status)
			assert.Len(t, body.Checks, 2)
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler(stubChecker{}, stubChecker{})
	h.SetShutdown(true)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
