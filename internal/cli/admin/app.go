package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/financelm/internal/config"
	"github.com/cloo-solutions/financelm/internal/database"
	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/jobs"
	"github.com/cloo-solutions/financelm/internal/loader"
	"github.com/cloo-solutions/financelm/internal/openai"
	"github.com/cloo-solutions/financelm/internal/repository"
	"github.com/cloo-solutions/financelm/internal/repository/sqlite"
	"github.com/cloo-solutions/financelm/internal/service"
	"github.com/cloo-solutions/financelm/internal/storage"
	"github.com/cloo-solutions/financelm/internal/telemetry"
)

// AuditStore persists and lists job runs.
type AuditStore interface {
	jobs.AuditSink
	ListRecent(ctx context.Context, jobName string, limit int) ([]*domain.JobAudit, error)
}

// App holds the services every daemon command shares.
type App struct {
	Config    *config.Config
	DB        *database.DB
	Ingestion *service.IngestionService
	Documents *service.DocumentService
	QA        *service.QAService
	Audits    AuditStore
	Scheduler *jobs.Scheduler
	ImportJob *jobs.ImportJob
	// Inbox is set when importing from a local directory.
	Inbox *storage.DirSource

	shutdownTelemetry func()
}

type appOptions struct {
	migrate bool
}

// NewApp loads configuration, opens the configured store and wires the
// services on top of it.
func NewApp(ctx context.Context, opts appOptions) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newAppWithConfig(ctx, cfg, opts)
}

func newAppWithConfig(ctx context.Context, cfg *config.Config, opts appOptions) (*App, error) {
	app := &App{Config: cfg, shutdownTelemetry: func() {}}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.AppName + "@" + cfg.AppVersion,
		TracesSampleRate: cfg.SentrySampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
	} else {
		app.shutdownTelemetry = shutdown
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Printf("connected to %s database", db.Backend)

	if opts.migrate {
		if err := db.Migrate(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	var embeddingClient *openai.Client
	if cfg.HasOpenAI() {
		embeddingClient, err = openai.NewClient(openai.Config{APIKey: cfg.OpenAIAPIKey})
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	var scorerClient service.EmbeddingClient
	if embeddingClient != nil && db.Backend == database.BackendPostgres {
		scorerClient = embeddingClient
	}
	scorerCfg := service.ScorerConfig{Kind: cfg.Scorer, HybridWeight: cfg.HybridWeight}
	if embeddingClient != nil {
		scorerCfg.EmbeddingModel = embeddingClient.Model()
	}
	scorer, err := service.NewScorer(scorerCfg, scorerClient)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build %q scorer: %w", cfg.Scorer, err)
	}

	chunkCfg := service.ChunkConfig{MaxChars: cfg.ChunkMaxChars, OverlapChars: cfg.ChunkOverlapChars}

	var (
		txRunner service.TxRunner
		chunks   service.ChunkStore
		docs     service.DocumentReaderInterface
		jobList  []jobs.Job
	)

	switch db.Backend {
	case database.BackendPostgres:
		chunkRepo := repository.NewChunkRepository(db.Pool)
		txRunner = repository.NewTxRunner(db.Pool)
		chunks = chunkRepo
		docs = repository.NewDocumentRepository(db.Pool)
		app.Audits = repository.NewJobAuditRepository(db.Pool)
		if embeddingClient != nil {
			backfill := service.NewEmbeddingService(embeddingClient, chunkRepo, service.DefaultEmbeddingBatchSize)
			jobList = append(jobList, jobs.NewEmbeddingJob(backfill))
		}
	default:
		store := sqlite.NewStore(db.SQL)
		txRunner = store
		chunks = store.Chunks()
		docs = store.Documents()
		app.Audits = store.JobAudits()
	}

	app.Ingestion, err = service.NewIngestionService(txRunner, chunkCfg, scorer)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Documents = service.NewDocumentService(docs)
	app.QA = service.NewQAService(service.NewRetriever(chunks, scorer, cfg.CandidateCap), cfg.DefaultTopK)

	source, err := importSource(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if dir, ok := source.(*storage.DirSource); ok {
		app.Inbox = dir
	}
	importer := service.NewImportService(app.Ingestion, docs, loader.Registry{})
	app.ImportJob = jobs.NewImportJob(importer, source, service.ImportDefaults{
		Source: cfg.ImportSource,
		Ticker: cfg.ImportTicker,
	})
	jobList = append([]jobs.Job{app.ImportJob}, jobList...)

	app.Scheduler = jobs.NewScheduler(app.Audits, cfg.Debug(), jobList...)
	return app, nil
}

// importSource prefers the S3 bucket when one is configured and falls back
// to the local inbox directory.
func importSource(ctx context.Context, cfg *config.Config) (service.DocumentSource, error) {
	if cfg.HasS3() {
		src, err := storage.NewS3Source(ctx, storage.S3SourceConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		if err := src.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("importing from S3 bucket '%s'", cfg.S3Bucket)
		return src, nil
	}

	src, err := storage.NewDirSource(cfg.InboxDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox %s: %w", cfg.InboxDir, err)
	}
	return src, nil
}

// Close releases the store and flushes telemetry.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	a.shutdownTelemetry()
}
