package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/crawl"
)

type staticStatus struct {
	status crawl.RunStatus
}

func (s staticStatus) Snapshot() crawl.RunStatus { return s.status }

func newTestHandler(t *testing.T, source StatusSource) http.Handler {
	t.Helper()
	return NewServer(0, source, zap.NewNop()).httpServer.Handler
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, staticStatus{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestProgressReturnsSnapshot(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, staticStatus{status: crawl.RunStatus{
		RunID: "run-123",
		Round: 2,
		Progress: crawl.Progress{
			PagesVisited: 14,
			TargetsFound: 3,
			TargetsTotal: 5,
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-123", got["run_id"])
	require.EqualValues(t, 2, got["round"])
	require.EqualValues(t, 14, got["pages_visited"])
	require.EqualValues(t, 3, got["targets_found"])
	require.EqualValues(t, 5, got["targets_total"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, staticStatus{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
