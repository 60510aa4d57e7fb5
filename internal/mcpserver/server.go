// Package mcpserver exposes question answering and ingestion as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	ErrMissingQAService        = errors.New("qa service is required")
	ErrMissingIngestionService = errors.New("ingestion service is required")
)

type QAService interface {
	Answer(ctx context.Context, q domain.QAQuery) (*domain.QAResult, error)
}

type IngestionService interface {
	Ingest(ctx context.Context, docs []domain.IngestDocumentInput) (*domain.IngestionSummary, error)
}

// Ports are the services the tools call into.
type Ports struct {
	QA     QAService
	Ingest IngestionService
}

func (p *Ports) Validate() error {
	if p.QA == nil {
		return ErrMissingQAService
	}
	if p.Ingest == nil {
		return ErrMissingIngestionService
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the ask and ingest tools under the given name and
// version.
func NewServer(name, version string, ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
