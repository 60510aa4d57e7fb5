package domain

import "time"

// JobStatus is the outcome of one job run.
type JobStatus string

const (
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// JobAudit is the audit record of one job run.
type JobAudit struct {
	ID               int64
	JobName          string
	Status           JobStatus
	StartedAt        time.Time
	FinishedAt       time.Time
	DurationMS       int64
	RecordsProcessed int
	Details          map[string]any
	CorrelationID    string
}
