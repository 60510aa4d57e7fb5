package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "1xx", statusClass(0))
}

func TestMetricsHandler(t *testing.T) {
	RecordHTTPRequest(http.StatusOK)
	RecordQARequest()
	RecordIngestion(1, 3)
	RecordJobRun("import", "success")

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "financelm")

	var app map[string]any
	require.NoError(t, json.Unmarshal(body["financelm"], &app))
	assert.GreaterOrEqual(t, app["qa_requests_total"], float64(1))
	assert.GreaterOrEqual(t, app["chunks_ingested_total"], float64(3))

	jobs, ok := app["job_runs_total"].(map[string]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, jobs["import_success"], float64(1))
}

func TestIsProbe(t *testing.T) {
	assert.True(t, isProbe("GET /health/live"))
	assert.True(t, isProbe("GET /health/ready"))
	assert.True(t, isProbe("GET /metrics"))
	assert.False(t, isProbe("POST /qa"))
}
