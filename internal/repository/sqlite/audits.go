package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
)

// JobAuditStore records job runs.
type JobAuditStore struct {
	q querier
}

func (s *JobAuditStore) Create(ctx context.Context, a *domain.JobAudit) error {
	detailsJSON, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshalling job details: %w", err)
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO job_audit
			(job_name, status, started_at, finished_at, duration_ms, records_processed, details, correlation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.JobName, string(a.Status), formatTime(a.StartedAt), formatTime(a.FinishedAt),
		a.DurationMS, a.RecordsProcessed, string(detailsJSON), a.CorrelationID)
	if err != nil {
		return fmt.Errorf("saving job audit: %w", err)
	}

	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading job audit id: %w", err)
	}
	return nil
}

// ListRecent returns the latest runs of a job, newest first. An empty name
// lists every job.
func (s *JobAuditStore) ListRecent(ctx context.Context, jobName string, limit int) ([]*domain.JobAudit, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, job_name, status, started_at, finished_at, duration_ms, records_processed, details, correlation_id
		FROM job_audit
		WHERE ? = '' OR job_name = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, jobName, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("listing job audits: %w", err)
	}
	defer rows.Close()

	var audits []*domain.JobAudit
	for rows.Next() {
		var a domain.JobAudit
		var status, startedAt, finishedAt, detailsJSON string
		if err := rows.Scan(&a.ID, &a.JobName, &status, &startedAt, &finishedAt, &a.DurationMS,
			&a.RecordsProcessed, &detailsJSON, &a.CorrelationID); err != nil {
			return nil, fmt.Errorf("scanning job audit: %w", err)
		}
		a.Status = domain.JobStatus(status)
		if a.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if a.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(detailsJSON), &a.Details); err != nil {
			return nil, fmt.Errorf("unmarshaling job details: %w", err)
		}
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}
