// Package jobs executes analysis pipelines as tracked jobs. Two runners
// share one contract: SyncRunner blocks until the result is ready,
// AsyncRunner queues the job for background workers. The mode is chosen
// once at process start.
package jobs

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/pipeline"
	"github.com/sells-group/takeoff-cli/internal/store"
)

// ErrValidation marks requests rejected before a job record is created.
// Invalid requests never enter the queue.
var ErrValidation = eris.New("jobs: invalid request")

// Analyzer runs one analysis. *pipeline.Pipeline is the production
// implementation.
type Analyzer interface {
	Run(ctx context.Context, req model.AnalysisRequest, report pipeline.ProgressFunc) (*model.AnalysisResult, error)
}

// Runner submits and tracks analysis jobs.
type Runner interface {
	// Submit validates the request and starts or queues a job. The
	// returned job is terminal for sync runners and queued for async.
	Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisJob, error)
	Status(ctx context.Context, jobID string) (*model.AnalysisJob, error)
	List(ctx context.Context, filter store.JobFilter) ([]model.AnalysisJob, error)
}

// ValidateRequest enforces the submission contract shared by both runners.
func ValidateRequest(req model.AnalysisRequest) error {
	hasDoc := req.DocumentHandle != ""
	hasText := strings.TrimSpace(req.RawText) != ""
	if !hasDoc && !hasText {
		return eris.Wrap(ErrValidation, "either a document or raw text is required")
	}
	if hasDoc && hasText {
		return eris.Wrap(ErrValidation, "document and raw text are mutually exclusive")
	}
	if req.TaxRate < 0 || req.TaxRate >= 1 {
		return eris.Wrapf(ErrValidation, "tax rate %v out of range [0, 1)", req.TaxRate)
	}
	if len(req.MaterialIDs) == 0 {
		return eris.Wrap(ErrValidation, "at least one material id is required")
	}
	for _, id := range req.MaterialIDs {
		if strings.TrimSpace(id) == "" {
			return eris.Wrap(ErrValidation, "blank material id")
		}
	}
	return nil
}

// SyncRunner executes jobs inline. The job record still goes through the
// store so sync and async results are inspected the same way.
type SyncRunner struct {
	store    store.Store
	analyzer Analyzer
}

// NewSync creates a SyncRunner.
func NewSync(st store.Store, analyzer Analyzer) *SyncRunner {
	return &SyncRunner{store: st, analyzer: analyzer}
}

func (r *SyncRunner) Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisJob, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	job, err := r.store.CreateJob(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create job")
	}
	if err := r.store.MarkJobActive(ctx, job.ID); err != nil {
		return nil, eris.Wrap(err, "jobs: mark job active")
	}

	result, runErr := r.analyzer.Run(ctx, req, func(p model.Progress) {
		_ = r.store.UpdateJobProgress(ctx, job.ID, p)
	})
	if runErr != nil {
		if failErr := r.store.FailJob(ctx, job.ID, runErr.Error()); failErr != nil {
			return nil, failErr
		}
		return r.store.GetJob(ctx, job.ID)
	}

	if err := r.store.CompleteJob(ctx, job.ID, result); err != nil {
		return nil, eris.Wrap(err, "jobs: complete job")
	}
	return r.store.GetJob(ctx, job.ID)
}

func (r *SyncRunner) Status(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	return r.store.GetJob(ctx, jobID)
}

func (r *SyncRunner) List(ctx context.Context, filter store.JobFilter) ([]model.AnalysisJob, error) {
	return r.store.ListJobs(ctx, filter)
}
