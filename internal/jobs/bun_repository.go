package jobs

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewJobRepository creates a generic repository for translation jobs.
func NewJobRepository(db *bun.DB) repository.Repository[*TranslationJob] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*TranslationJob]{
		NewRecord: func() *TranslationJob { return &TranslationJob{} },
		GetID: func(job *TranslationJob) uuid.UUID {
			return job.ID
		},
		SetID: func(job *TranslationJob, id uuid.UUID) {
			job.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(job *TranslationJob) string {
			return job.ID.String()
		},
	})
}

// BunJobRepository implements JobRepository on bun.
type BunJobRepository struct {
	db   *bun.DB
	repo repository.Repository[*TranslationJob]
}

// NewBunJobRepository creates a job repository.
func NewBunJobRepository(db *bun.DB) *BunJobRepository {
	return &BunJobRepository{db: db, repo: NewJobRepository(db)}
}

func (r *BunJobRepository) Create(ctx context.Context, job *TranslationJob) (*TranslationJob, error) {
	created, err := r.repo.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("translation job repository error: %w", err)
	}
	return created, nil
}

func (r *BunJobRepository) Update(ctx context.Context, job *TranslationJob) (*TranslationJob, error) {
	updated, err := r.repo.Update(ctx, job,
		repository.UpdateByID(job.ID.String()),
		repository.UpdateColumns(
			"name",
			"state",
			"stats",
			"errors",
			"attempts",
			"retryable",
			"started_at",
			"finished_at",
			"updated_at",
		),
	)
	if err != nil {
		return nil, r.mapError(err, job.ID)
	}
	return updated, nil
}

func (r *BunJobRepository) Finish(ctx context.Context, job *TranslationJob) (*TranslationJob, error) {
	res, err := r.db.NewUpdate().
		Model(job).
		Column("state", "stats", "errors", "retryable", "finished_at", "updated_at").
		WherePK().
		Where("?TableAlias.state = ?", domain.JobStateRunning).
		Where("?TableAlias.attempts = ?", job.Attempts).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("translation job repository error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("translation job repository error: %w", err)
	}
	current, err := r.GetByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &StateConflictError{ID: job.ID, Expected: domain.JobStateRunning, Actual: current.State}
	}
	return current, nil
}

func (r *BunJobRepository) AttachTask(ctx context.Context, id uuid.UUID, taskID string) error {
	res, err := r.db.NewUpdate().
		Model((*TranslationJob)(nil)).
		Set("task_id = ?", taskID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("translation job repository error: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (r *BunJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*TranslationJob, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, r.mapError(err, id)
	}
	return record, nil
}

func (r *BunJobRepository) List(ctx context.Context, tenantID string) ([]*TranslationJob, error) {
	var records []*TranslationJob
	q := r.db.NewSelect().Model(&records)
	if tenantID != "" {
		q = q.Where("?TableAlias.tenant_id = ?", tenantID)
	}
	if err := q.OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("translation job repository error: %w", err)
	}
	return records, nil
}

func (r *BunJobRepository) Transition(ctx context.Context, id uuid.UUID, from, to domain.JobState, at time.Time) (*TranslationJob, error) {
	at = at.UTC()
	q := r.db.NewUpdate().
		Model((*TranslationJob)(nil)).
		Set("state = ?", to).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("state = ?", from)
	switch {
	case to == domain.JobStateRunning:
		q = q.Set("attempts = attempts + 1").
			Set("started_at = ?", at).
			Set("finished_at = NULL")
	case to.Terminal():
		q = q.Set("finished_at = ?", at)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("translation job repository error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("translation job repository error: %w", err)
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &StateConflictError{ID: id, Expected: from, Actual: current.State}
	}
	return current, nil
}

func (r *BunJobRepository) mapError(err error, id uuid.UUID) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{ID: id}
	}
	return fmt.Errorf("translation job repository error: %w", err)
}
