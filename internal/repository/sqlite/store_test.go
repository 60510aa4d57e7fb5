package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/financelm/internal/database"
	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/service"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite://"+t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate())

	return NewStore(db.SQL)
}

func ingest(t *testing.T, store *Store, docs ...domain.IngestDocumentInput) *domain.IngestionSummary {
	t.Helper()
	svc, err := service.NewIngestionService(store, service.DefaultChunkConfig(), service.LexicalScorer{})
	require.NoError(t, err)
	summary, err := svc.Ingest(context.Background(), docs)
	require.NoError(t, err)
	return summary
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestStore_IngestAndFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary := ingest(t, store,
		domain.IngestDocumentInput{Source: "news", Ticker: domain.StringPtr("AAPL"), Title: "Apple", Content: "Apple revenue increased in services.", PublishedAt: date(2024, 3, 1)},
		domain.IngestDocumentInput{Source: "filing", Ticker: domain.StringPtr("MSFT"), Title: "Microsoft", Content: "Microsoft cloud margins expanded.", PublishedAt: date(2024, 6, 1)},
	)
	assert.Equal(t, 2, summary.DocumentsIngested)
	assert.Equal(t, 2, summary.ChunksIngested)

	all, err := store.Chunks().FetchChunksByFilter(ctx, domain.Filters{}, 300)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Less(t, all[0].ID, all[1].ID)
	assert.Equal(t, "AAPL", domain.StringValue(all[0].Ticker))
	assert.Equal(t, float64(0), all[0].Metadata[domain.MetaStartChar])
	assert.True(t, all[0].PublishedAt.Equal(*date(2024, 3, 1)))

	tests := []struct {
		name    string
		filters domain.Filters
		want    []string
	}{
		{"ticker", domain.Filters{Ticker: "MSFT"}, []string{"MSFT"}},
		{"source", domain.Filters{Source: "news"}, []string{"AAPL"}},
		{"date from inclusive", domain.Filters{DateFrom: date(2024, 6, 1)}, []string{"MSFT"}},
		{"date to inclusive", domain.Filters{DateTo: date(2024, 3, 1)}, []string{"AAPL"}},
		{"conjunctive", domain.Filters{Ticker: "AAPL", Source: "filing"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Chunks().FetchChunksByFilter(ctx, tt.filters, 300)
			require.NoError(t, err)
			var tickers []string
			for _, c := range got {
				tickers = append(tickers, domain.StringValue(c.Ticker))
			}
			assert.Equal(t, tt.want, tickers)
		})
	}

	capped, err := store.Chunks().FetchChunksByFilter(ctx, domain.Filters{}, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(repos service.TxRepositories) error {
		doc := &domain.Document{Source: "news", Title: "t", Content: "c"}
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	docs, err := store.Documents().List(ctx, service.DocumentListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_DuplicateChunkRollsBackBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(repos service.TxRepositories) error {
		doc := &domain.Document{Source: "news", Title: "t", Content: "c"}
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		c := domain.Chunk{DocumentID: doc.ID, ChunkID: "doc1_dup", Content: "c", Source: "news"}
		if err := repos.Chunks().Create(ctx, &c); err != nil {
			return err
		}
		again := c
		return repos.Chunks().Create(ctx, &again)
	})
	assert.ErrorIs(t, err, domain.ErrChunkAlreadyExists)

	all, err := store.Chunks().FetchChunksByFilter(ctx, domain.Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDocumentStore_OriginAndPaging(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docs := store.Documents()

	require.NoError(t, docs.Create(ctx, &domain.Document{Source: "filing", Title: "10-K", Content: "x", Origin: "file:///inbox/10k.txt"}))
	assert.ErrorIs(t,
		docs.Create(ctx, &domain.Document{Source: "filing", Title: "10-K", Content: "x", Origin: "file:///inbox/10k.txt"}),
		domain.ErrDocumentAlreadyExists)

	exists, err := docs.ExistsByOrigin(ctx, "file:///inbox/10k.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = docs.ExistsByOrigin(ctx, "file:///inbox/other.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	for i := 0; i < 4; i++ {
		require.NoError(t, docs.Create(ctx, &domain.Document{Source: "news", Ticker: domain.StringPtr("AAPL"), Title: "n", Content: "x"}))
	}

	svc := service.NewDocumentService(docs)
	first, err := svc.List(ctx, service.ListDocumentsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)

	seen := map[int64]bool{}
	for _, d := range first.Items {
		seen[d.ID] = true
	}
	cursor := first.Cursor
	for cursor != "" {
		page, err := svc.List(ctx, service.ListDocumentsInput{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, d := range page.Items {
			assert.False(t, seen[d.ID], "document %d listed twice", d.ID)
			seen[d.ID] = true
		}
		cursor = page.Cursor
	}
	assert.Len(t, seen, 5)

	filtered, err := svc.List(ctx, service.ListDocumentsInput{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, filtered.Items, 4)

	got, err := docs.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "file:///inbox/10k.txt", got.Origin)
	assert.Nil(t, got.Ticker)

	_, err = docs.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestJobAuditStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	audits := store.JobAudits()

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []domain.JobStatus{domain.JobStatusSuccess, domain.JobStatusFailed} {
		require.NoError(t, audits.Create(ctx, &domain.JobAudit{
			JobName:          "import",
			Status:           status,
			StartedAt:        start.Add(time.Duration(i) * time.Minute),
			FinishedAt:       start.Add(time.Duration(i)*time.Minute + time.Second),
			DurationMS:       1000,
			RecordsProcessed: 3,
			Details:          map[string]any{"run": i},
			CorrelationID:    "corr",
		}))
	}

	recent, err := audits.ListRecent(ctx, "import", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.JobStatusFailed, recent[0].Status)
	assert.Equal(t, float64(1), recent[0].Details["run"])

	none, err := audits.ListRecent(ctx, "embedding_backfill", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
