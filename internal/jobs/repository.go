package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/google/uuid"
)

// JobRepository persists translation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *TranslationJob) (*TranslationJob, error)
	// Update writes every mutable column except task_id, which only
	// AttachTask sets.
	Update(ctx context.Context, job *TranslationJob) (*TranslationJob, error)
	AttachTask(ctx context.Context, id uuid.UUID, taskID string) error
	GetByID(ctx context.Context, id uuid.UUID) (*TranslationJob, error)
	List(ctx context.Context, tenantID string) ([]*TranslationJob, error)
	// Transition moves a job from one state to another only when it is
	// still in from. Moving to running increments attempts.
	Transition(ctx context.Context, id uuid.UUID, from, to domain.JobState, at time.Time) (*TranslationJob, error)
	// Finish writes the outcome of a run only while the stored job is still
	// running the same attempt. Otherwise it returns a StateConflictError.
	Finish(ctx context.Context, job *TranslationJob) (*TranslationJob, error)
}

// NotFoundError is returned when a job does not exist.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("translation job %q not found", e.ID)
}

// StateConflictError is returned by Transition when the stored state no
// longer matches the expected one.
type StateConflictError struct {
	ID       uuid.UUID
	Expected domain.JobState
	Actual   domain.JobState
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("translation job %q is %s, expected %s", e.ID, e.Actual, e.Expected)
}

func applyTransition(job *TranslationJob, to domain.JobState, at time.Time) {
	job.State = to
	job.UpdatedAt = at
	switch {
	case to == domain.JobStateRunning:
		job.Attempts++
		started := at
		job.StartedAt = &started
		job.FinishedAt = nil
	case to.Terminal():
		finished := at
		job.FinishedAt = &finished
	}
}

func sortJobs(records []*TranslationJob) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
