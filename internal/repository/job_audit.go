package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobAuditRepository struct {
	db dbtx
}

func NewJobAuditRepository(pool *pgxpool.Pool) *JobAuditRepository {
	return &JobAuditRepository{db: pool}
}

func (r *JobAuditRepository) Create(ctx context.Context, a *domain.JobAudit) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("encode job details: %w", err)
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO job_audit
			(job_name, status, started_at, finished_at, duration_ms, records_processed, details, correlation_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		a.JobName, string(a.Status), a.StartedAt, a.FinishedAt, a.DurationMS, a.RecordsProcessed, details, a.CorrelationID,
	).Scan(&a.ID)
}

// ListRecent returns the latest runs of a job, newest first. An empty name
// lists every job.
func (r *JobAuditRepository) ListRecent(ctx context.Context, jobName string, limit int) ([]*domain.JobAudit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, job_name, status, started_at, finished_at, duration_ms, records_processed, details, correlation_id
		 FROM job_audit
		 WHERE $1 = '' OR job_name = $1
		 ORDER BY started_at DESC, id DESC
		 LIMIT $2`,
		jobName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []*domain.JobAudit
	for rows.Next() {
		var a domain.JobAudit
		var status string
		var details []byte
		if err := rows.Scan(&a.ID, &a.JobName, &status, &a.StartedAt, &a.FinishedAt, &a.DurationMS,
			&a.RecordsProcessed, &details, &a.CorrelationID); err != nil {
			return nil, err
		}
		a.Status = domain.JobStatus(status)
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decode job details: %w", err)
		}
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}
