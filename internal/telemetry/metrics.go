package telemetry

import (
	"expvar"
	"net/http"
)

// Process-wide counters, published under the "financelm" expvar map and
// served by MetricsHandler.
var (
	metrics = expvar.NewMap("financelm")

	httpRequests = new(expvar.Map).Init()
	jobRuns      = new(expvar.Map).Init()
	qaRequests   = new(expvar.Int)
	docsIngested = new(expvar.Int)
	chunksStored = new(expvar.Int)
)

func init() {
	metrics.Set("http_requests_total", httpRequests)
	metrics.Set("job_runs_total", jobRuns)
	metrics.Set("qa_requests_total", qaRequests)
	metrics.Set("documents_ingested_total", docsIngested)
	metrics.Set("chunks_ingested_total", chunksStored)
}

// RecordHTTPRequest counts a response by status class ("2xx", "4xx", ...).
func RecordHTTPRequest(status int) {
	httpRequests.Add(statusClass(status), 1)
}

// RecordQARequest counts an answered question.
func RecordQARequest() {
	qaRequests.Add(1)
}

// RecordIngestion counts committed documents and chunks.
func RecordIngestion(documents, chunks int) {
	docsIngested.Add(int64(documents))
	chunksStored.Add(int64(chunks))
}

// RecordJobRun counts a job run under "<job>_<status>".
func RecordJobRun(job, status string) {
	jobRuns.Add(job+"_"+status, 1)
}

// MetricsHandler serves every published expvar as JSON.
func MetricsHandler() http.Handler {
	return expvar.Handler()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
