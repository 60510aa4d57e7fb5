package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/financelm/internal/domain"
)

const (
	envAPIToken = "FINANCELM_API_TOKEN"
	envAPIURL   = "FINANCELM_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves connection settings from the --api-url and
// --api-token flags, then .env and the environment, then the global config.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var flagURL, flagToken string
	if cmd != nil {
		flagURL, _ = cmd.Flags().GetString("api-url")
		flagToken, _ = cmd.Flags().GetString("api-token")
	}

	creds, err := ResolveCredentials(flagURL, flagToken)
	if err != nil {
		return nil, err
	}
	return NewAPIClientWithConfig(creds.APIToken, creds.APIURL), nil
}

func NewAPIClientWithConfig(token, baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// AskRequest is the wire form of POST /qa.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	Ticker   string `json:"ticker,omitempty"`
	Source   string `json:"source,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

// DocumentSummary is one entry of GET /documents or the body of
// GET /documents/{id}.
type DocumentSummary struct {
	ID          int64   `json:"id"`
	Source      string  `json:"source"`
	Ticker      *string `json:"ticker"`
	Title       string  `json:"title"`
	Content     string  `json:"content,omitempty"`
	PublishedAt *string `json:"published_at"`
	Origin      string  `json:"origin,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type DocumentList struct {
	Documents []DocumentSummary `json:"documents"`
	Cursor    string            `json:"cursor,omitempty"`
	HasMore   bool              `json:"has_more"`
}

type ListDocumentsParams struct {
	Ticker string
	Source string
	Limit  int
	Cursor string
}

// Ask posts a question to /qa.
func (c *APIClient) Ask(ctx context.Context, q domain.QAQuery) (*domain.QAResult, error) {
	req := AskRequest{
		Question: q.Question,
		TopK:     q.TopK,
		Ticker:   q.Filters.Ticker,
		Source:   q.Filters.Source,
	}
	if q.Filters.DateFrom != nil {
		req.DateFrom = q.Filters.DateFrom.UTC().Format(time.RFC3339)
	}
	if q.Filters.DateTo != nil {
		req.DateTo = q.Filters.DateTo.UTC().Format(time.RFC3339)
	}

	var result domain.QAResult
	if err := c.do(ctx, http.MethodPost, "/qa", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ingest posts one batch to /documents/ingest.
func (c *APIClient) Ingest(ctx context.Context, docs []domain.IngestDocumentInput) (*domain.IngestionSummary, error) {
	body := map[string]any{"documents": docs}
	var summary domain.IngestionSummary
	if err := c.do(ctx, http.MethodPost, "/documents/ingest", body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *APIClient) ListDocuments(ctx context.Context, p ListDocumentsParams) (*DocumentList, error) {
	q := url.Values{}
	if p.Ticker != "" {
		q.Set("ticker", p.Ticker)
	}
	if p.Source != "" {
		q.Set("source", p.Source)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	path := "/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list DocumentList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *APIClient) GetDocument(ctx context.Context, id int64) (*DocumentSummary, error) {
	var doc DocumentSummary
	if err := c.do(ctx, http.MethodGet, "/documents/"+strconv.FormatInt(id, 10), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Version reads /version. It needs no token.
func (c *APIClient) Version(ctx context.Context) (map[string]string, error) {
	var info map[string]string
	if err := c.do(ctx, http.MethodGet, "/version", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// Ready reports whether /health/ready answers 200.
func (c *APIClient) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health/ready", nil, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Code: apiResp.Code, Message: apiResp.Error}
	}

	if out != nil && len(apiResp.Data) > 0 {
		if err := json.Unmarshal(apiResp.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}
