package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloo-solutions/financelm/internal/service"
)

const (
	EmbeddingJobName = "embedding_backfill"

	// MaxRetries is the number of consecutive runs with failed chunks the
	// job tolerates before reporting failure.
	MaxRetries = 3
)

// Backfiller is the embedding capability the job drives.
type Backfiller interface {
	Backfill(ctx context.Context) (*service.BackfillResult, error)
}

// EmbeddingJob embeds chunks that have no vector yet.
type EmbeddingJob struct {
	backfiller Backfiller

	mu             sync.Mutex
	failedAttempts int
}

func NewEmbeddingJob(backfiller Backfiller) *EmbeddingJob {
	return &EmbeddingJob{backfiller: backfiller}
}

func (j *EmbeddingJob) Name() string {
	return EmbeddingJobName
}

func (j *EmbeddingJob) Run(ctx context.Context) (JobResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	result, err := j.backfiller.Backfill(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("embedding backfill: %w", err)
	}

	if result.Failed == 0 {
		j.failedAttempts = 0
	} else {
		j.failedAttempts++
	}

	jr := JobResult{
		RecordsProcessed: result.Embedded,
		Details: map[string]any{
			"embedded": result.Embedded,
			"failed":   result.Failed,
			"attempt":  j.failedAttempts,
		},
	}
	if j.failedAttempts >= MaxRetries {
		j.failedAttempts = 0
		return jr, fmt.Errorf("%d chunks still failing after %d runs", result.Failed, MaxRetries)
	}
	return jr, nil
}
