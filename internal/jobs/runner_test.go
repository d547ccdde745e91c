package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/pipeline"
	"github.com/sells-group/takeoff-cli/internal/store"
)

// fakeAnalyzer replays canned results and records attempts. failFirst
// makes the first N runs fail, exercising the retry path.
type fakeAnalyzer struct {
	mu        sync.Mutex
	runs      int
	failFirst int
	err       error
	result    *model.AnalysisResult
	onRun     func(ctx context.Context)
}

func (f *fakeAnalyzer) Run(ctx context.Context, _ model.AnalysisRequest, report pipeline.ProgressFunc) (*model.AnalysisResult, error) {
	f.mu.Lock()
	f.runs++
	runs := f.runs
	f.mu.Unlock()

	if f.onRun != nil {
		f.onRun(ctx)
	}

	if report != nil {
		for _, p := range []model.Progress{
			{Stage: "reading", Percent: 10},
			{Stage: "pricing", Percent: 70},
			{Stage: "complete", Percent: 100},
		} {
			report(p)
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	if runs <= f.failFirst {
		return nil, eris.Errorf("transient failure on run %d", runs)
	}
	result := f.result
	if result == nil {
		result = &model.AnalysisResult{
			Geometry:  model.ProjectGeometry{TotalArea: 2000, Floors: 2},
			Breakdown: model.CostBreakdown{Subtotal: 100, Tax: 12, Total: 112, TaxRate: 0.12},
		}
	}
	return result, nil
}

func (f *fakeAnalyzer) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func validRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		RawText:     "MAIN FLOOR AREA: 1400 SQFT",
		MaterialIDs: []string{"2x4_studs"},
		TaxRate:     0.12,
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     model.AnalysisRequest
		wantErr bool
	}{
		{"raw text only", model.AnalysisRequest{RawText: "text", MaterialIDs: []string{"2x4_studs"}}, false},
		{"document only", model.AnalysisRequest{DocumentHandle: "abc.pdf", MaterialIDs: []string{"2x4_studs"}}, false},
		{"neither", model.AnalysisRequest{}, true},
		{"whitespace text", model.AnalysisRequest{RawText: "   "}, true},
		{"both", model.AnalysisRequest{RawText: "text", DocumentHandle: "abc.pdf"}, true},
		{"negative tax", model.AnalysisRequest{RawText: "text", TaxRate: -0.01}, true},
		{"tax at one", model.AnalysisRequest{RawText: "text", TaxRate: 1}, true},
		{"empty material list", model.AnalysisRequest{RawText: "text"}, true},
		{"blank material id", model.AnalysisRequest{RawText: "text", MaterialIDs: []string{"2x4_studs", " "}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSyncSubmitCompletes(t *testing.T) {
	st := store.NewMemory()
	r := NewSync(st, &fakeAnalyzer{})

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.InDelta(t, 112, job.Result.Breakdown.Total, 0.001)
	assert.Equal(t, 100, job.Progress.Percent)
}

func TestSyncSubmitFailure(t *testing.T) {
	st := store.NewMemory()
	r := NewSync(st, &fakeAnalyzer{err: eris.New("extraction broke")})

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "extraction broke")
	assert.Nil(t, job.Result)
}

func TestSyncSubmitValidationNoJobRecord(t *testing.T) {
	st := store.NewMemory()
	r := NewSync(st, &fakeAnalyzer{})

	_, err := r.Submit(context.Background(), model.AnalysisRequest{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))

	jobs, err := st.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSyncSubmitEmptyMaterialsRejected(t *testing.T) {
	st := store.NewMemory()
	analyzer := &fakeAnalyzer{}
	r := NewSync(st, analyzer)

	_, err := r.Submit(context.Background(), model.AnalysisRequest{
		RawText: "MAIN FLOOR AREA: 1400 SQFT",
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))
	assert.Equal(t, 0, analyzer.runCount())

	jobs, err := st.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSyncSubmitMarksJobActive(t *testing.T) {
	st := store.NewMemory()
	var observed []model.JobStatus
	r := NewSync(st, &fakeAnalyzer{onRun: func(ctx context.Context) {
		active, err := st.ListJobs(ctx, store.JobFilter{Status: model.JobStatusActive})
		if err == nil {
			for _, j := range active {
				observed = append(observed, j.Status)
			}
		}
	}})

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.Len(t, observed, 1)
	assert.Equal(t, model.JobStatusActive, observed[0])
}

func TestSyncStatus(t *testing.T) {
	st := store.NewMemory()
	r := NewSync(st, &fakeAnalyzer{})

	job, err := r.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	got, err := r.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = r.Status(context.Background(), "nonexistent")
	assert.True(t, eris.Is(err, store.ErrNotFound))
}
