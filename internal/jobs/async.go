package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/resilience"
	"github.com/sells-group/takeoff-cli/internal/store"
)

const (
	defaultWorkers      = 2
	defaultPollInterval = 500 * time.Millisecond
)

// AsyncRunner queues jobs and executes them on background workers. Each
// failed pipeline run is retried with exponential backoff; a job only
// reaches the failed state after the attempt budget is spent.
type AsyncRunner struct {
	store    store.Store
	analyzer Analyzer
	cfg      config.JobsConfig
	retryCfg resilience.RetryConfig
	log      *zap.Logger
}

// NewAsync creates an AsyncRunner; call Start to launch the workers.
func NewAsync(st store.Store, analyzer Analyzer, cfg config.JobsConfig) *AsyncRunner {
	return &AsyncRunner{
		store:    st,
		analyzer: analyzer,
		cfg:      cfg,
		retryCfg: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: time.Duration(cfg.RetryBackoffSecs) * time.Second,
		},
		log: zap.L().Named("jobs"),
	}
}

func (r *AsyncRunner) Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisJob, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	job, err := r.store.CreateJob(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create job")
	}
	r.log.Info("job queued", zap.String("job_id", job.ID))
	return job, nil
}

func (r *AsyncRunner) Status(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	return r.store.GetJob(ctx, jobID)
}

func (r *AsyncRunner) List(ctx context.Context, filter store.JobFilter) ([]model.AnalysisJob, error) {
	return r.store.ListJobs(ctx, filter)
}

// Start launches the worker pool and blocks until ctx is canceled and all
// in-flight jobs have finished.
func (r *AsyncRunner) Start(ctx context.Context) {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.workerLoop(ctx, i)
		}()
	}
	wg.Wait()
}

func (r *AsyncRunner) workerLoop(ctx context.Context, worker int) {
	log := r.log.With(zap.Int("worker", worker))
	interval := r.cfg.PollInterval()
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := r.store.ClaimQueuedJob(ctx)
		if err != nil {
			log.Warn("claim failed", zap.Error(err))
		} else if job != nil {
			r.execute(ctx, job)
			// Drain the queue before going back to sleep.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// execute runs one claimed job to a terminal state. Every pipeline error is
// treated as retryable; the whole pipeline re-runs on each attempt.
func (r *AsyncRunner) execute(ctx context.Context, job *model.AnalysisJob) {
	log := r.log.With(zap.String("job_id", job.ID))
	log.Info("job started")

	attempts := 0
	var result *model.AnalysisResult

	retryCfg := r.retryCfg
	retryCfg.OnRetry = func(attempt int, err error) {
		log.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	err := resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
		attempts++
		if err := r.store.UpdateJobAttempts(ctx, job.ID, attempts); err != nil {
			log.Warn("attempt count not persisted", zap.Error(err))
		}
		var runErr error
		result, runErr = r.analyzer.Run(ctx, job.Request, func(p model.Progress) {
			_ = r.store.UpdateJobProgress(ctx, job.ID, p)
		})
		return runErr
	})

	if err != nil {
		log.Error("job failed", zap.Int("attempts", attempts), zap.Error(err))
		if failErr := r.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("failure not persisted", zap.Error(failErr))
		}
		return
	}

	if err := r.store.CompleteJob(ctx, job.ID, result); err != nil {
		log.Error("result not persisted", zap.Error(err))
		return
	}
	log.Info("job completed", zap.Int("attempts", attempts))
}
