package model

import "time"

// JobStatus represents the lifecycle state of an analysis job. Transitions
// are monotonic: queued → active → completed|failed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Progress is one progress event for a job. Percent is non-decreasing over
// the life of a job.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// AnalysisJob is one tracked pipeline execution. The job runner exclusively
// owns job state; terminal jobs are retained until the janitor purges them.
type AnalysisJob struct {
	ID       string          `json:"id"`
	Status   JobStatus       `json:"status"`
	Progress Progress        `json:"progress"`
	Request  AnalysisRequest `json:"request"`
	Result   *AnalysisResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Attempts int             `json:"attempts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
