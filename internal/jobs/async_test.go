package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/store"
)

func testJobsConfig() config.JobsConfig {
	return config.JobsConfig{
		Mode:           "async",
		Workers:        2,
		PollIntervalMs: 10,
		MaxAttempts:    3,
	}
}

// startRunner launches the worker pool with fast retry backoff and stops it
// on test cleanup.
func startRunner(t *testing.T, st store.Store, analyzer Analyzer) *AsyncRunner {
	t.Helper()

	r := NewAsync(st, analyzer, testJobsConfig())
	r.retryCfg.InitialBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func waitTerminal(t *testing.T, r *AsyncRunner, jobID string) *model.AnalysisJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, err := r.Status(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s still %s", jobID, job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAsyncJobCompletes(t *testing.T) {
	st := store.NewMemory()
	analyzer := &fakeAnalyzer{}
	r := startRunner(t, st, analyzer)

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Nil(t, job.Result)

	done := waitTerminal(t, r, job.ID)
	assert.Equal(t, model.JobStatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.InDelta(t, 112, done.Result.Breakdown.Total, 0.001)
	assert.Equal(t, 1, done.Attempts)
	assert.Equal(t, 100, done.Progress.Percent)
	assert.Equal(t, 1, analyzer.runCount())
}

func TestAsyncJobRetriesThenSucceeds(t *testing.T) {
	st := store.NewMemory()
	analyzer := &fakeAnalyzer{failFirst: 2}
	r := startRunner(t, st, analyzer)

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	done := waitTerminal(t, r, job.ID)
	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, 3, done.Attempts)
	assert.Equal(t, 3, analyzer.runCount())
}

func TestAsyncJobExhaustsAttempts(t *testing.T) {
	st := store.NewMemory()
	analyzer := &fakeAnalyzer{err: eris.New("pricing ledger offline")}
	r := startRunner(t, st, analyzer)

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	done := waitTerminal(t, r, job.ID)
	assert.Equal(t, model.JobStatusFailed, done.Status)
	assert.Contains(t, done.Error, "pricing ledger offline")
	assert.Equal(t, 3, done.Attempts)
	assert.Equal(t, 3, analyzer.runCount())
}

func TestAsyncQueueDrainsMultipleJobs(t *testing.T) {
	st := store.NewMemory()
	analyzer := &fakeAnalyzer{}
	r := startRunner(t, st, analyzer)

	var ids []string
	for range 5 {
		job, err := r.Submit(context.Background(), validRequest())
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	for _, id := range ids {
		done := waitTerminal(t, r, id)
		assert.Equal(t, model.JobStatusCompleted, done.Status)
	}
	assert.Equal(t, 5, analyzer.runCount())
}

func TestAsyncValidationNeverQueues(t *testing.T) {
	st := store.NewMemory()
	r := NewAsync(st, &fakeAnalyzer{}, testJobsConfig())

	_, err := r.Submit(context.Background(), model.AnalysisRequest{TaxRate: 2, RawText: "x"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))

	jobs, err := st.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJanitorSweep(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	done, err := st.CreateJob(ctx, validRequest())
	require.NoError(t, err)
	require.NoError(t, st.CompleteJob(ctx, done.ID, &model.AnalysisResult{}))

	queued, err := st.CreateJob(ctx, validRequest())
	require.NoError(t, err)

	// Zero retention: everything terminal is already past the window.
	j := NewJanitor(st, nil, config.JobsConfig{RetentionHours: 0})
	j.Sweep(ctx)

	_, err = st.GetJob(ctx, done.ID)
	assert.True(t, eris.Is(err, store.ErrNotFound))
	_, err = st.GetJob(ctx, queued.ID)
	assert.NoError(t, err)
}
