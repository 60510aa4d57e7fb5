package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/telemetry"
)

// IngestionService chunks and stores document batches.
type IngestionService struct {
	txRunner TxRunner
	chunkCfg ChunkConfig
	provider string
	model    string
}

// NewIngestionService creates an IngestionService. Chunk metadata is
// labelled with the scorer's provider and model.
func NewIngestionService(txRunner TxRunner, chunkCfg ChunkConfig, scorer Scorer) (*IngestionService, error) {
	if err := chunkCfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	return &IngestionService{
		txRunner: txRunner,
		chunkCfg: chunkCfg,
		provider: scorer.Provider(),
		model:    scorer.Model(),
	}, nil
}

// Ingest writes every document of the batch with its chunks in a single
// transaction. Nothing is written if any descriptor is invalid or any
// write fails.
func (s *IngestionService) Ingest(ctx context.Context, docs []domain.IngestDocumentInput) (*domain.IngestionSummary, error) {
	if len(docs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	for i, in := range docs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	summary := &domain.IngestionSummary{}
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		for _, in := range docs {
			n, err := s.ingestOne(ctx, repos, in)
			if err != nil {
				return err
			}
			summary.DocumentsIngested++
			summary.ChunksIngested += n
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	telemetry.RecordIngestion(summary.DocumentsIngested, summary.ChunksIngested)
	return summary, nil
}

func (s *IngestionService) ingestOne(ctx context.Context, repos TxRepositories, in domain.IngestDocumentInput) (int, error) {
	doc := domain.NewDocument(in)
	if err := repos.Documents().Create(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to create document: %w", err)
	}

	chunks, err := ChunkText(doc.ID, doc.Content, s.chunkCfg)
	if err != nil {
		return 0, err
	}

	for i := range chunks {
		c := &chunks[i]
		c.Source = doc.Source
		c.Ticker = doc.Ticker
		c.PublishedAt = doc.PublishedAt
		c.Metadata = MergeChunkMetadata(in.Metadata, c.Metadata)

		if err := repos.Chunks().Create(ctx, c); err != nil {
			return 0, fmt.Errorf("failed to create chunk %s: %w", c.ChunkID, err)
		}
		meta := domain.NewEmbeddingMetadata(*c, s.provider, s.model)
		if err := repos.EmbeddingMetadata().Create(ctx, meta); err != nil {
			return 0, fmt.Errorf("failed to create embedding metadata for %s: %w", c.ChunkID, err)
		}
	}

	return len(chunks), nil
}
