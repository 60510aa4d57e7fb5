//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/service"
	"github.com/cloo-solutions/financelm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, source, ticker string, published time.Time) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		Source:      source,
		Ticker:      domain.StringPtr(ticker),
		Title:       source + " " + ticker,
		Content:     "body",
		PublishedAt: &published,
	}
	require.NoError(t, repo.Create(ctx, doc))
	return doc
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := seedDocument(ctx, t, repo, "news", "AAPL", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.NotZero(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "news", got.Source)
	assert.Equal(t, "AAPL", domain.StringValue(got.Ticker))
	assert.Empty(t, got.Origin)

	_, err = repo.GetByID(ctx, doc.ID+1000)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_OriginIsUnique(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := &domain.Document{Source: "filing", Title: "10-K", Content: "x", Origin: "s3://bucket/10k.pdf"}
	require.NoError(t, repo.Create(ctx, doc))

	exists, err := repo.ExistsByOrigin(ctx, "s3://bucket/10k.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &domain.Document{Source: "filing", Title: "10-K", Content: "x", Origin: "s3://bucket/10k.pdf"}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDocumentAlreadyExists)
}

func TestDocumentRepository_ListPaginates(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	for i := 0; i < 5; i++ {
		seedDocument(ctx, t, repo, "news", "MSFT", time.Now().UTC())
	}

	svc := service.NewDocumentService(repo)
	first, err := svc.List(ctx, service.ListDocumentsInput{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, service.ListDocumentsInput{Limit: 3, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.False(t, second.HasMore)
	assert.Less(t, second.Items[0].ID, first.Items[2].ID)
}

func TestChunkRepository_FetchChunksByFilter(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	docs := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)

	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	aapl := seedDocument(ctx, t, docs, "news", "AAPL", march)
	msft := seedDocument(ctx, t, docs, "filing", "MSFT", june)

	for i, d := range []*domain.Document{aapl, aapl, msft} {
		c := &domain.Chunk{
			DocumentID:  d.ID,
			ChunkID:     service.ChunkID(d.ID, i, "content"),
			ChunkIndex:  i,
			Content:     "content",
			Source:      d.Source,
			Ticker:      d.Ticker,
			PublishedAt: d.PublishedAt,
			Metadata:    map[string]any{domain.MetaStartChar: 0, domain.MetaEndChar: 7},
		}
		require.NoError(t, chunks.Create(ctx, c))
	}

	all, err := chunks.FetchChunksByFilter(ctx, domain.Filters{}, 300)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
	assert.Equal(t, float64(7), all[0].Metadata[domain.MetaEndChar])

	byTicker, err := chunks.FetchChunksByFilter(ctx, domain.Filters{Ticker: "AAPL"}, 300)
	require.NoError(t, err)
	assert.Len(t, byTicker, 2)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	byDate, err := chunks.FetchChunksByFilter(ctx, domain.Filters{DateFrom: &from}, 300)
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "MSFT", domain.StringValue(byDate[0].Ticker))

	capped, err := chunks.FetchChunksByFilter(ctx, domain.Filters{}, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestChunkRepository_Embeddings(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	doc := seedDocument(ctx, t, NewDocumentRepository(pool), "news", "AAPL", time.Now().UTC())
	chunks := NewChunkRepository(pool)
	c := &domain.Chunk{DocumentID: doc.ID, ChunkID: service.ChunkID(doc.ID, 0, "x"), Content: "x", Source: "news"}
	require.NoError(t, chunks.Create(ctx, c))

	missing, err := chunks.ListMissingEmbeddings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	vec := make([]float32, 1536)
	vec[0] = 1
	require.NoError(t, chunks.UpdateEmbedding(ctx, c.ChunkID, vec))

	missing, err = chunks.ListMissingEmbeddings(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	stored, err := chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, float32(1), stored[0].Embedding[0])

	assert.ErrorIs(t, chunks.UpdateEmbedding(ctx, "missing", vec), domain.ErrChunkNotFound)
}

func TestTxRunner_IngestRollsBack(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	svc, err := service.NewIngestionService(NewTxRunner(pool), service.DefaultChunkConfig(), service.LexicalScorer{})
	require.NoError(t, err)

	summary, err := svc.Ingest(ctx, []domain.IngestDocumentInput{
		{Source: "news", Ticker: domain.StringPtr("AAPL"), Title: "Apple", Content: "Apple revenue increased in services."},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DocumentsIngested)
	assert.Equal(t, 1, summary.ChunksIngested)

	meta, err := NewEmbeddingMetadataRepository(pool).GetByChunkID(ctx, service.ChunkID(1, 0, "Apple revenue increased in services."))
	require.NoError(t, err)
	assert.Equal(t, domain.VectorProviderLexical, meta.VectorProvider)

	boom := errors.New("boom")
	err = NewTxRunner(pool).WithTx(ctx, func(repos service.TxRepositories) error {
		doc := &domain.Document{Source: "news", Title: "t", Content: "c"}
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestJobAuditRepository(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewJobAuditRepository(pool)
	start := time.Now().UTC().Truncate(time.Microsecond)
	audit := &domain.JobAudit{
		JobName:          "import",
		Status:           domain.JobStatusFailed,
		StartedAt:        start,
		FinishedAt:       start.Add(time.Second),
		DurationMS:       1000,
		RecordsProcessed: 0,
		Details:          map[string]any{"error": "bucket missing"},
		CorrelationID:    "corr-1",
	}
	require.NoError(t, repo.Create(ctx, audit))
	assert.NotZero(t, audit.ID)

	recent, err := repo.ListRecent(ctx, "import", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.JobStatusFailed, recent[0].Status)
	assert.Equal(t, "bucket missing", recent[0].Details["error"])
}
