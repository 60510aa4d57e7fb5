package mcpserver

import (
	"context"
	"strings"

	"github.com/cloo-solutions/financelm/internal/api/handlers"
	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from ingested financial documents"`
	TopK     *int   `json:"top_k,omitempty" jsonschema:"number of chunks to cite, 1 to 20 (default 5)"`
	Ticker   string `json:"ticker,omitempty" jsonschema:"restrict to documents about this ticker"`
	Source   string `json:"source,omitempty" jsonschema:"restrict to documents from this source"`
	DateFrom string `json:"date_from,omitempty" jsonschema:"earliest publication date, RFC 3339 or YYYY-MM-DD"`
	DateTo   string `json:"date_to,omitempty" jsonschema:"latest publication date, RFC 3339 or YYYY-MM-DD"`
}

type CitationOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Source     string  `json:"source"`
	Ticker     string  `json:"ticker,omitempty"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

type AskOutput struct {
	Answer     string           `json:"answer"`
	Confidence float64          `json:"confidence"`
	Citations  []CitationOutput `json:"citations"`
}

type IngestInput struct {
	Title       string `json:"title" jsonschema:"document title"`
	Content     string `json:"content" jsonschema:"full document text"`
	Source      string `json:"source" jsonschema:"where the document came from, e.g. sec or news"`
	Ticker      string `json:"ticker,omitempty" jsonschema:"ticker the document is about"`
	PublishedAt string `json:"published_at,omitempty" jsonschema:"publication time, RFC 3339 or YYYY-MM-DD"`
}

type IngestOutput struct {
	DocumentsIngested int `json:"documents_ingested"`
	ChunksIngested    int `json:"chunks_ingested"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question with citations from ingested financial documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest one document so later questions can cite it",
	}, s.handleIngest)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	query, err := handlers.QARequest{
		Question: input.Question,
		TopK:     input.TopK,
		Ticker:   input.Ticker,
		Source:   input.Source,
		DateFrom: input.DateFrom,
		DateTo:   input.DateTo,
	}.ToQuery()
	if err != nil {
		return nil, AskOutput{}, err
	}

	result, err := s.ports.QA.Answer(ctx, query)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     result.Answer,
		Confidence: result.Confidence,
		Citations:  make([]CitationOutput, len(result.Citations)),
	}
	for i, c := range result.Citations {
		output.Citations[i] = CitationOutput{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Source:     c.Source,
			Ticker:     domain.StringValue(c.Ticker),
			Excerpt:    c.Excerpt,
			Score:      c.Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	published, err := handlers.ParseDate("published_at", input.PublishedAt)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	doc := domain.IngestDocumentInput{
		Source:      input.Source,
		Title:       input.Title,
		Content:     input.Content,
		PublishedAt: published,
		Metadata:    map[string]any{"ingested_via": "mcp"},
	}
	if t := strings.TrimSpace(input.Ticker); t != "" {
		doc.Ticker = &t
	}

	summary, err := s.ports.Ingest.Ingest(ctx, []domain.IngestDocumentInput{doc})
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{
		DocumentsIngested: summary.DocumentsIngested,
		ChunksIngested:    summary.ChunksIngested,
	}, nil
}
