package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/google/uuid"
)

type memoryRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*TranslationJob
}

// NewMemoryRepository constructs an in-memory job repository.
func NewMemoryRepository() JobRepository {
	return &memoryRepository{jobs: make(map[uuid.UUID]*TranslationJob)}
}

func (m *memoryRepository) Create(_ context.Context, job *TranslationJob) (*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return cloneJob(job), nil
}

func (m *memoryRepository) Update(_ context.Context, job *TranslationJob) (*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[job.ID]
	if !ok {
		return nil, &NotFoundError{ID: job.ID}
	}
	stored := cloneJob(job)
	stored.TaskID = current.TaskID
	m.jobs[job.ID] = stored
	return cloneJob(stored), nil
}

func (m *memoryRepository) Finish(_ context.Context, job *TranslationJob) (*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[job.ID]
	if !ok {
		return nil, &NotFoundError{ID: job.ID}
	}
	if current.State != domain.JobStateRunning || current.Attempts != job.Attempts {
		return nil, &StateConflictError{ID: job.ID, Expected: domain.JobStateRunning, Actual: current.State}
	}
	stored := cloneJob(job)
	stored.TaskID = current.TaskID
	m.jobs[job.ID] = stored
	return cloneJob(stored), nil
}

func (m *memoryRepository) AttachTask(_ context.Context, id uuid.UUID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	job.TaskID = taskID
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*TranslationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return cloneJob(job), nil
}

func (m *memoryRepository) List(_ context.Context, tenantID string) ([]*TranslationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*TranslationJob
	for _, job := range m.jobs {
		if tenantID != "" && job.TenantID != tenantID {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sortJobs(out)
	return out, nil
}

func (m *memoryRepository) Transition(_ context.Context, id uuid.UUID, from, to domain.JobState, at time.Time) (*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if job.State != from {
		return nil, &StateConflictError{ID: id, Expected: from, Actual: job.State}
	}
	applyTransition(job, to, at)
	return cloneJob(job), nil
}
