package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/telemetry"
	"github.com/google/uuid"
)

// ErrUnknownJob is returned by RunByName for a name no job is registered under.
var ErrUnknownJob = domain.NewDomainError(domain.ErrCodeNotFound, "unknown job")

// JobResult is what a job reports about a successful run.
type JobResult struct {
	RecordsProcessed int
	Details          map[string]any
}

// Job is a named unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) (JobResult, error)
}

// AuditSink persists job audit records.
type AuditSink interface {
	Create(ctx context.Context, audit *domain.JobAudit) error
}

// Scheduler runs registered jobs and records one audit row per run.
type Scheduler struct {
	audits  AuditSink
	jobs    []Job
	verbose bool
	now     func() time.Time
}

func NewScheduler(audits AuditSink, verbose bool, jobs ...Job) *Scheduler {
	return &Scheduler{
		audits:  audits,
		jobs:    jobs,
		verbose: verbose,
		now:     time.Now,
	}
}

// Jobs returns the names of the registered jobs in run order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// RunWithAudit runs job once. A job failure is written to the audit trail and
// returned inside the audit; only a failure to write the audit is returned as
// an error.
func (s *Scheduler) RunWithAudit(ctx context.Context, job Job) (*domain.JobAudit, error) {
	correlationID := uuid.New().String()
	ctx, span := telemetry.StartTransaction(ctx, "job."+job.Name(), "job.run")
	defer span.End()
	span.SetData("correlation_id", correlationID)

	if s.verbose {
		log.Printf("job_started job=%s correlation_id=%s", job.Name(), correlationID)
	}

	started := s.now().UTC()
	result, runErr := job.Run(ctx)
	finished := s.now().UTC()

	audit := &domain.JobAudit{
		JobName:          job.Name(),
		Status:           domain.JobStatusSuccess,
		StartedAt:        started,
		FinishedAt:       finished,
		DurationMS:       finished.Sub(started).Milliseconds(),
		RecordsProcessed: result.RecordsProcessed,
		Details:          result.Details,
		CorrelationID:    correlationID,
	}
	if audit.Details == nil {
		audit.Details = map[string]any{}
	}
	if runErr != nil {
		audit.Status = domain.JobStatusFailed
		audit.Details = map[string]any{"error": runErr.Error()}
		span.SetError(runErr)
		telemetry.CaptureError(ctx, runErr)
	} else {
		span.SetOK()
	}

	telemetry.RecordJobRun(job.Name(), string(audit.Status))
	log.Printf("job_completed job=%s status=%s duration_ms=%d records=%d correlation_id=%s",
		audit.JobName, audit.Status, audit.DurationMS, audit.RecordsProcessed, correlationID)

	if err := s.audits.Create(ctx, audit); err != nil {
		return audit, fmt.Errorf("failed to record audit for job %s: %w", job.Name(), err)
	}
	return audit, nil
}

// RunAll runs every registered job in order and joins audit write failures.
func (s *Scheduler) RunAll(ctx context.Context) ([]*domain.JobAudit, error) {
	audits := make([]*domain.JobAudit, 0, len(s.jobs))
	var errs []error
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		audit, err := s.RunWithAudit(ctx, job)
		if err != nil {
			errs = append(errs, err)
		}
		audits = append(audits, audit)
	}
	return audits, errors.Join(errs...)
}

// RunByName runs the registered job with the given name.
func (s *Scheduler) RunByName(ctx context.Context, name string) (*domain.JobAudit, error) {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.RunWithAudit(ctx, job)
		}
	}
	return nil, domain.Wrap(ErrUnknownJob, name)
}

// ProcessJobs lets a Worker drive the scheduler.
func (s *Scheduler) ProcessJobs(ctx context.Context) error {
	_, err := s.RunAll(ctx)
	return err
}
