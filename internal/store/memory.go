package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/takeoff-cli/internal/model"
)

// MemoryStore is an in-process Store for sync mode and tests. Jobs live
// only as long as the process.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*model.AnalysisJob
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.AnalysisJob)}
}

func (s *MemoryStore) CreateJob(_ context.Context, req model.AnalysisRequest) (*model.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &model.AnalysisJob{
		ID:        uuid.NewString(),
		Status:    model.JobStatusQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	return copyJob(job), nil
}

func (s *MemoryStore) GetJob(_ context.Context, jobID string) (*model.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(job), nil
}

func (s *MemoryStore) ListJobs(_ context.Context, filter JobFilter) ([]model.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*model.AnalysisJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool {
		return all[i].CreatedAt.After(all[k].CreatedAt)
	})

	offset := filter.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit < len(all) {
		all = all[:limit]
	}

	out := make([]model.AnalysisJob, 0, len(all))
	for _, j := range all {
		out = append(out, *copyJob(j))
	}
	return out, nil
}

func (s *MemoryStore) ClaimQueuedJob(_ context.Context) (*model.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *model.AnalysisJob
	for _, j := range s.jobs {
		if j.Status != model.JobStatusQueued {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.Status = model.JobStatusActive
	oldest.UpdatedAt = time.Now().UTC()
	return copyJob(oldest), nil
}

func (s *MemoryStore) MarkJobActive(_ context.Context, jobID string) error {
	return s.update(jobID, func(j *model.AnalysisJob) {
		j.Status = model.JobStatusActive
	})
}

func (s *MemoryStore) UpdateJobProgress(_ context.Context, jobID string, p model.Progress) error {
	return s.update(jobID, func(j *model.AnalysisJob) {
		j.Progress = p
	})
}

func (s *MemoryStore) UpdateJobAttempts(_ context.Context, jobID string, attempts int) error {
	return s.update(jobID, func(j *model.AnalysisJob) {
		j.Attempts = attempts
	})
}

func (s *MemoryStore) CompleteJob(_ context.Context, jobID string, result *model.AnalysisResult) error {
	return s.update(jobID, func(j *model.AnalysisJob) {
		j.Status = model.JobStatusCompleted
		j.Result = result
		j.Error = ""
	})
}

func (s *MemoryStore) FailJob(_ context.Context, jobID string, errMsg string) error {
	return s.update(jobID, func(j *model.AnalysisJob) {
		j.Status = model.JobStatusFailed
		j.Error = errMsg
	})
}

func (s *MemoryStore) PurgeTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) update(jobID string, fn func(*model.AnalysisJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// copyJob returns a shallow copy so callers cannot mutate stored state.
// Result payloads are treated as immutable once written.
func copyJob(j *model.AnalysisJob) *model.AnalysisJob {
	c := *j
	return &c
}
