package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buslistings/bus-scraper/internal/crawl"
)

type staticStats struct {
	summary crawl.Summary
}

func (s staticStats) Stats() crawl.Summary {
	return s.summary
}

func newTestServer(summary crawl.Summary) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(staticStats{summary: summary}, logger).Router()
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(crawl.Summary{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestServer(crawl.Summary{
		RunID:             "run-1",
		Succeeded:         12,
		PermanentlyFailed: 2,
		ParseErrors:       1,
		RecordsPersisted:  11,
		PersistFailures:   1,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, float64(12), body["succeeded"])
	assert.Equal(t, float64(2), body["failed"])
	assert.Equal(t, float64(1), body["parse_errors"])
	assert.Equal(t, float64(11), body["persisted"])
	assert.Equal(t, float64(1), body["persist_failures"])
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestServer(crawl.Summary{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
