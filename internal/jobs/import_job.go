package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloo-solutions/financelm/internal/service"
)

const ImportJobName = "document_import"

// Importer is the import capability the job drives.
type Importer interface {
	Import(ctx context.Context, src service.DocumentSource, defaults service.ImportDefaults) (*service.ImportResult, error)
}

// ImportJob imports new files from one DocumentSource per run. Runs are
// serialized so a watcher trigger and a scheduled tick never import the
// same file twice.
type ImportJob struct {
	importer Importer
	source   service.DocumentSource
	defaults service.ImportDefaults
	mu       sync.Mutex
}

func NewImportJob(importer Importer, source service.DocumentSource, defaults service.ImportDefaults) *ImportJob {
	return &ImportJob{
		importer: importer,
		source:   source,
		defaults: defaults,
	}
}

func (j *ImportJob) Name() string {
	return ImportJobName
}

func (j *ImportJob) Run(ctx context.Context) (JobResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	result, err := j.importer.Import(ctx, j.source, j.defaults)
	if err != nil {
		return JobResult{}, fmt.Errorf("import from %s: %w", j.source.Scheme(), err)
	}

	return JobResult{
		RecordsProcessed: result.Imported,
		Details: map[string]any{
			"source":   j.source.Scheme(),
			"imported": result.Imported,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
			"chunks":   result.Chunks,
		},
	}, nil
}
