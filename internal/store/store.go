package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/model"
)

// ErrNotFound is returned when a job ID does not exist.
var ErrNotFound = eris.New("store: job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis jobs. Workers claim
// queued jobs through ClaimQueuedJob, which is the only queued → active
// transition and must hand each job to exactly one worker.
type Store interface {
	CreateJob(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisJob, error)
	GetJob(ctx context.Context, jobID string) (*model.AnalysisJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.AnalysisJob, error)

	// ClaimQueuedJob atomically claims the oldest queued job for this
	// worker. It returns (nil, nil) when the queue is empty.
	ClaimQueuedJob(ctx context.Context) (*model.AnalysisJob, error)

	// MarkJobActive transitions a known job to active. Inline runners use
	// this where workers use ClaimQueuedJob.
	MarkJobActive(ctx context.Context, jobID string) error

	UpdateJobProgress(ctx context.Context, jobID string, p model.Progress) error
	UpdateJobAttempts(ctx context.Context, jobID string, attempts int) error
	CompleteJob(ctx context.Context, jobID string, result *model.AnalysisResult) error
	FailJob(ctx context.Context, jobID string, errMsg string) error

	// PurgeTerminalBefore deletes completed and failed jobs last updated
	// before the cutoff, reporting how many were removed.
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store from config.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "takeoff.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
