//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/financelm/internal/api/handlers"
	"github.com/cloo-solutions/financelm/internal/jobs"
	"github.com/cloo-solutions/financelm/internal/loader"
	"github.com/cloo-solutions/financelm/internal/repository"
	"github.com/cloo-solutions/financelm/internal/server"
	"github.com/cloo-solutions/financelm/internal/service"
	"github.com/cloo-solutions/financelm/internal/storage"
	"github.com/cloo-solutions/financelm/internal/testutil"
)

const (
	e2eToken  = "e2e-secret-token"
	e2eBucket = "e2e-inbox"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Inbox        *storage.S3Source
	Scheduler    *jobs.Scheduler
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)

	inbox, err := storage.NewS3Source(ctx, storage.S3SourceConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          e2eBucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 source: %v", err)
	}
	if err := inbox.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Inbox:      inbox,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// startServer wires the lexical pipeline over the container database and
// serves it on port.
func (e *E2ETestEnv) startServer(port int) (string, func()) {
	scorer, err := service.NewScorer(service.ScorerConfig{Kind: service.ScorerLexical}, nil)
	if err != nil {
		e.T.Fatalf("failed to build scorer: %v", err)
	}

	docRepo := repository.NewDocumentRepository(e.Pool)
	ingestion, err := service.NewIngestionService(repository.NewTxRunner(e.Pool), service.DefaultChunkConfig(), scorer)
	if err != nil {
		e.T.Fatalf("failed to build ingestion service: %v", err)
	}
	qa := service.NewQAService(service.NewRetriever(repository.NewChunkRepository(e.Pool), scorer, 200), 5)

	importer := service.NewImportService(ingestion, docRepo, loader.Registry{})
	importJob := jobs.NewImportJob(importer, e.Inbox, service.ImportDefaults{Source: "e2e-inbox"})
	e.Scheduler = jobs.NewScheduler(repository.NewJobAuditRepository(e.Pool), false, importJob)

	router := server.NewRouter(server.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(e.Pool, handlers.VersionInfo{
			AppName:     "financelm",
			AppVersion:  "e2e",
			Environment: "test",
		}),
		DocumentHandler: handlers.NewDocumentHandler(ingestion, service.NewDocumentService(docRepo)),
		QAHandler:       handlers.NewQAHandler(qa),
		APIToken:        e2eToken,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body any, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// doRequest returns the decoded envelope for every status; transport and
// decoding failures are the only errors.
func (e *E2ETestEnv) doRequest(method, path string, body any, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return apiResp, nil
}

// MustDecode unmarshals the response data or fails the test.
func (e *E2ETestEnv) MustDecode(resp *APIResponse, v any) {
	e.T.Helper()
	if resp.Status >= 400 {
		e.T.Fatalf("unexpected HTTP %d: %s (%s)", resp.Status, resp.Error, resp.Code)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		e.T.Fatalf("failed to decode response data: %v", err)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health/live")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
