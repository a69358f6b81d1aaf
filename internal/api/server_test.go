package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivethreefive/legisync/internal/api"
	"github.com/fivethreefive/legisync/internal/status"
)

type stubStatuses struct {
	st  *status.SyncStatus
	err error
}

func (s stubStatuses) LoadStatus(context.Context) (*status.SyncStatus, error) {
	return s.st, s.err
}

func serve(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	rr := serve(t, api.NewServer(stubStatuses{}), "/healthz")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	rr := serve(t, api.NewServer(stubStatuses{}), "/version")

	require.Equal(t, http.StatusOK, rr.Code)
	var response api.VersionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Version)
	assert.NotEmpty(t, response.GoVersion)
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		statuses       stubStatuses
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "persisted status",
			statuses:       stubStatuses{st: &status.SyncStatus{Phase: status.SyncPhaseComplete, Published: 3, Failed: 1}},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				t.Helper()
				var st status.SyncStatus
				require.NoError(t, json.Unmarshal(body, &st))
				assert.Equal(t, status.SyncPhaseComplete, st.Phase)
				assert.Equal(t, 3, st.Published)
				assert.Equal(t, 1, st.Failed)
			},
		},
		{
			name:           "load failure",
			statuses:       stubStatuses{err: errors.New("disk gone")},
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				t.Helper()
				var resp api.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "failed to load sync status", resp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := serve(t, api.NewServer(tt.statuses), "/v1/status")
			assert.Equal(t, tt.expectedStatus, rr.Code)
			tt.check(t, rr.Body.Bytes())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("legisync_records_total 1\n"))
	})

	withMetrics := serve(t, api.NewServer(stubStatuses{}, api.WithMetricsHandler(metrics)), "/metrics")
	assert.Equal(t, http.StatusOK, withMetrics.Code)
	assert.Contains(t, withMetrics.Body.String(), "legisync_records_total")

	without := serve(t, api.NewServer(stubStatuses{}), "/metrics")
	assert.Equal(t, http.StatusNotFound, without.Code)
}

func TestWithMiddlewares(t *testing.T) {
	t.Parallel()

	var seen []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := api.NewServer(stubStatuses{}, api.WithMiddlewares(mw, api.LoggingMiddleware))
	rr := serve(t, server, "/healthz")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"/healthz"}, seen)
}
