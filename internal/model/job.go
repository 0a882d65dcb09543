package model

import "time"

// JobStatus represents the state of an ingestion job. Progression is
// monotone: starting → fetching_messages → processing → completed, with
// failed reachable from any state on an unrecoverable error.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusFetching   JobStatus = "fetching_messages"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IngestError records a per-message failure, keyed by subject for
// diagnostics. Order matches encounter order within the run.
type IngestError struct {
	Subject string `json:"subject"`
	Reason  string `json:"error"`
}

// IngestJob tracks the progress of one asynchronous ingestion run.
// Visibility is process-local; jobs are never persisted.
type IngestJob struct {
	ID            string        `json:"id"`
	Status        JobStatus     `json:"status"`
	TotalMessages int           `json:"total_messages"`
	Processed     int           `json:"processed"`
	Created       int           `json:"created"`
	Skipped       int           `json:"skipped"`
	Errors        []IngestError `json:"errors"`
	Message       string        `json:"message,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}
