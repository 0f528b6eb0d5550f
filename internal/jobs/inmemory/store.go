package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/jobs"
)

// Store keeps job state in memory. It is safe for concurrent use and is
// emptied on restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.Job
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.Job)}
}

// SaveJob stores a copy of job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.Job) error {
	if job.ID == "" {
		return fmt.Errorf("SaveJob: job id is required")
	}
	if err := domain.RequireUser(job.UserID); err != nil {
		return fmt.Errorf("SaveJob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// GetJob returns a copy of the job. Jobs of other users are reported as
// not found.
func (s *Store) GetJob(ctx context.Context, userID, jobID string) (*jobs.Job, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "job"}
	}
	return job.Clone(), nil
}

// ListJobs returns the user's jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, userID string, filter jobs.Filter) ([]*jobs.Job, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var result []*jobs.Job
	for _, job := range s.jobs {
		if job.UserID != userID {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.Job{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.Store = (*Store)(nil)
