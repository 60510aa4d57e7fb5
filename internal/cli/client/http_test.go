package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/financelm/internal/domain"
)

func TestAPIClient_Ask(t *testing.T) {
	var got AskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/qa", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"answer":"Grounded summary from retrieved documents:\n- Revenue rose.","confidence":0.9,"citations":[{"chunk_id":"doc1_x","document_id":1,"source":"sec","ticker":"AAPL","published_at":null,"excerpt":"Revenue rose.","score":1}]}}`))
	}))
	defer srv.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := NewAPIClientWithConfig("secret", srv.URL+"/")
	result, err := api.Ask(context.Background(), domain.QAQuery{
		Question: "revenue",
		TopK:     2,
		Filters:  domain.Filters{Ticker: "AAPL", DateFrom: &from},
	})

	require.NoError(t, err)
	assert.Equal(t, "revenue", got.Question)
	assert.Equal(t, 2, got.TopK)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.DateFrom)
	assert.Empty(t, got.DateTo)
	assert.Equal(t, 0.9, result.Confidence)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "AAPL", domain.StringValue(result.Citations[0].Ticker))
}

func TestAPIClient_NoTokenNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"status":"ready"}}`))
	}))
	defer srv.Close()

	require.NoError(t, NewAPIClientWithConfig("", srv.URL).Ready(context.Background()))
}

func TestAPIClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{name: "enveloped error", status: http.StatusBadRequest, body: `{"error":"validation failed: question must contain at least 3 characters","code":"VALIDATION_ERROR"}`, wantCode: "VALIDATION_ERROR", wantMsg: "at least 3 characters"},
		{name: "plain text error", status: http.StatusBadGateway, body: "bad gateway", wantMsg: "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAPIClientWithConfig("", srv.URL).Ask(context.Background(), domain.QAQuery{Question: "ab"})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Contains(t, apiErr.Message, tt.wantMsg)
		})
	}
}

func TestAPIClient_ListDocumentsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents", r.URL.Path)
		assert.Equal(t, "MSFT", r.URL.Query().Get("ticker"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		assert.False(t, r.URL.Query().Has("source"))
		w.Write([]byte(`{"data":{"documents":[{"id":3,"source":"sec","ticker":"MSFT","title":"10-K","published_at":null,"created_at":"2024-08-02T09:30:00Z"}],"cursor":"next","has_more":true}}`))
	}))
	defer srv.Close()

	list, err := NewAPIClientWithConfig("", srv.URL).ListDocuments(context.Background(), ListDocumentsParams{
		Ticker: "MSFT", Limit: 5, Cursor: "abc",
	})

	require.NoError(t, err)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, int64(3), list.Documents[0].ID)
	assert.True(t, list.HasMore)
	assert.Equal(t, "next", list.Cursor)
}

func TestAPIClient_Ingest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Documents []map[string]any `json:"documents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Documents, 1)
		assert.Equal(t, "news", body.Documents[0]["source"])
		assert.NotContains(t, body.Documents[0], "ticker")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"documents_ingested":1,"chunks_ingested":2}}`))
	}))
	defer srv.Close()

	summary, err := NewAPIClientWithConfig("", srv.URL).Ingest(context.Background(), []domain.IngestDocumentInput{
		{Source: "news", Title: "Wire", Content: "Markets rallied."},
	})

	require.NoError(t, err)
	assert.Equal(t, &domain.IngestionSummary{DocumentsIngested: 1, ChunksIngested: 2}, summary)
}
