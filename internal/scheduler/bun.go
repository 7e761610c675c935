package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// TaskRecord is the persisted row of a queued task.
type TaskRecord struct {
	bun.BaseModel `bun:"table:queue_tasks,alias:qt"`

	ID          string         `bun:",pk"`
	Key         string         `bun:"task_key"`
	Type        string         `bun:"task_type,notnull"`
	RunAt       time.Time      `bun:"run_at,notnull"`
	Payload     map[string]any `bun:"payload,type:jsonb"`
	MaxAttempts int            `bun:"max_attempts,notnull,default:0"`
	Attempt     int            `bun:"attempt,notnull,default:0"`
	LastError   string         `bun:"last_error"`
	Status      string         `bun:"status,notnull"`
	LeaseToken  string         `bun:"lease_token"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// NewBun creates a task queue persisted in the queue_tasks table so tasks
// survive the submitting process and can be drained by a separate worker.
func NewBun(db *bun.DB, opts ...Option) interfaces.Scheduler {
	return &bunScheduler{settings: newSettings(opts), db: db}
}

type bunScheduler struct {
	settings
	db *bun.DB
}

func (s *bunScheduler) Enqueue(ctx context.Context, spec interfaces.TaskSpec) (*interfaces.Task, error) {
	if spec.RunAt.IsZero() {
		return nil, errors.New("scheduler: run_at is required")
	}
	if spec.Key != "" {
		existing := new(TaskRecord)
		err := s.db.NewSelect().Model(existing).
			Where("?TableAlias.task_key = ?", spec.Key).
			Where("?TableAlias.status = ?", string(interfaces.TaskStatusPending)).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return recordToTask(existing), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scheduler: lookup task key: %w", err)
		}
	}

	now := s.now().UTC()
	record := &TaskRecord{
		ID:          s.id(),
		Key:         spec.Key,
		Type:        spec.Type,
		RunAt:       spec.RunAt.UTC(),
		Payload:     maps.Clone(spec.Payload),
		MaxAttempts: spec.MaxAttempts,
		Status:      string(interfaces.TaskStatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if record.MaxAttempts == 0 {
		record.MaxAttempts = s.maxAttempt
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, fmt.Errorf("scheduler: insert task: %w", err)
	}
	return recordToTask(record), nil
}

// Cancel stops a pending or running task. Settled tasks are left as they are.
func (s *bunScheduler) Cancel(ctx context.Context, id string) error {
	record, err := s.load(ctx, "id", id)
	if err != nil {
		return err
	}
	if record.Status != string(interfaces.TaskStatusPending) && record.Status != string(interfaces.TaskStatusRunning) {
		return nil
	}
	return s.setStatus(ctx, record, interfaces.TaskStatusCanceled)
}

func (s *bunScheduler) CancelByKey(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	record, err := s.loadPendingByKey(ctx, key)
	if err != nil {
		return err
	}
	return s.setStatus(ctx, record, interfaces.TaskStatusCanceled)
}

func (s *bunScheduler) Get(ctx context.Context, id string) (*interfaces.Task, error) {
	record, err := s.load(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	return recordToTask(record), nil
}

func (s *bunScheduler) GetByKey(ctx context.Context, key string) (*interfaces.Task, error) {
	if key == "" {
		return nil, interfaces.ErrTaskNotFound
	}
	record, err := s.loadPendingByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return recordToTask(record), nil
}

func (s *bunScheduler) ListDue(ctx context.Context, until time.Time, limit int) ([]*interfaces.Task, error) {
	var records []TaskRecord
	query := s.db.NewSelect().Model(&records).
		Where("?TableAlias.status = ?", string(interfaces.TaskStatusPending)).
		Where("?TableAlias.run_at <= ?", until.UTC()).
		OrderExpr("?TableAlias.run_at ASC, ?TableAlias.created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("scheduler: list due tasks: %w", err)
	}
	out := make([]*interfaces.Task, 0, len(records))
	for i := range records {
		out = append(out, recordToTask(&records[i]))
	}
	return out, nil
}

// Claim picks due candidates and takes each one with a compare-and-swap on
// its status and lease token, so concurrent workers never share a task. On
// postgres the candidate rows are locked with SKIP LOCKED as well.
func (s *bunScheduler) Claim(ctx context.Context, until time.Time, limit int) ([]*interfaces.Task, error) {
	claimed := make([]*interfaces.Task, 0)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var candidates []TaskRecord
		query := tx.NewSelect().Model(&candidates).
			Where("?TableAlias.status IN (?)", bun.In([]string{
				string(interfaces.TaskStatusPending),
				string(interfaces.TaskStatusRunning),
			})).
			Where("?TableAlias.run_at <= ?", until.UTC()).
			OrderExpr("?TableAlias.run_at ASC, ?TableAlias.created_at ASC")
		if limit > 0 {
			query = query.Limit(limit)
		}
		if s.db.Dialect().Name() == dialect.PG {
			query = query.For("UPDATE SKIP LOCKED")
		}
		if err := query.Scan(ctx); err != nil {
			return fmt.Errorf("scheduler: list claimable tasks: %w", err)
		}

		now := s.now().UTC()
		for i := range candidates {
			record := &candidates[i]
			prevStatus, prevToken := record.Status, record.LeaseToken
			if record.Status == string(interfaces.TaskStatusRunning) {
				// the previous holder let the lease run out
				task := recordToTask(record)
				s.failAttempt(task, errLeaseExpired, false)
				applyTask(record, task)
			}
			if record.Status != string(interfaces.TaskStatusFailed) {
				record.Status = string(interfaces.TaskStatusRunning)
				record.RunAt = now.Add(s.lease)
				record.LeaseToken = s.id()
				record.UpdatedAt = now
			}
			res, err := tx.NewUpdate().Model(record).
				Column("status", "attempt", "last_error", "run_at", "lease_token", "updated_at").
				WherePK().
				Where("?TableAlias.status = ?", prevStatus).
				Where("COALESCE(?TableAlias.lease_token, '') = ?", prevToken).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("scheduler: claim task: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 || record.Status != string(interfaces.TaskStatusRunning) {
				continue
			}
			claimed = append(claimed, recordToTask(record))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *bunScheduler) MarkDone(ctx context.Context, id string) error {
	return s.settle(ctx, id, func(task *interfaces.Task) {
		task.Status = interfaces.TaskStatusCompleted
		task.UpdatedAt = s.now().UTC()
	})
}

func (s *bunScheduler) MarkFailed(ctx context.Context, id string, failure error) error {
	return s.settle(ctx, id, func(task *interfaces.Task) {
		s.failAttempt(task, failure, false)
	})
}

func (s *bunScheduler) MarkAbandoned(ctx context.Context, id string, failure error) error {
	return s.settle(ctx, id, func(task *interfaces.Task) {
		s.failAttempt(task, failure, true)
	})
}

// settle applies fn to a running task and writes it back only if the task is
// still running under the same lease.
func (s *bunScheduler) settle(ctx context.Context, id string, fn func(*interfaces.Task)) error {
	record, err := s.load(ctx, "id", id)
	if err != nil {
		return err
	}
	if record.Status != string(interfaces.TaskStatusRunning) {
		return interfaces.ErrTaskNotClaimed
	}
	token := record.LeaseToken
	task := recordToTask(record)
	fn(task)
	applyTask(record, task)
	record.LeaseToken = ""

	res, err := s.db.NewUpdate().Model(record).
		Column("status", "attempt", "last_error", "run_at", "lease_token", "updated_at").
		WherePK().
		Where("?TableAlias.status = ?", string(interfaces.TaskStatusRunning)).
		Where("COALESCE(?TableAlias.lease_token, '') = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: settle task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return interfaces.ErrTaskNotClaimed
	}
	return nil
}

func applyTask(record *TaskRecord, task *interfaces.Task) {
	record.Attempt = task.Attempt
	record.LastError = task.LastError
	record.Status = string(task.Status)
	record.RunAt = task.RunAt
	record.UpdatedAt = task.UpdatedAt
}

func (s *bunScheduler) load(ctx context.Context, column, value string) (*TaskRecord, error) {
	record := new(TaskRecord)
	err := s.db.NewSelect().Model(record).Where("?TableAlias.? = ?", bun.Ident(column), value).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scheduler: load task: %w", err)
	}
	return record, nil
}

func (s *bunScheduler) loadPendingByKey(ctx context.Context, key string) (*TaskRecord, error) {
	record := new(TaskRecord)
	err := s.db.NewSelect().Model(record).
		Where("?TableAlias.task_key = ?", key).
		Where("?TableAlias.status = ?", string(interfaces.TaskStatusPending)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scheduler: load task by key: %w", err)
	}
	return record, nil
}

func (s *bunScheduler) setStatus(ctx context.Context, record *TaskRecord, status interfaces.TaskStatus) error {
	record.Status = string(status)
	record.UpdatedAt = s.now().UTC()
	return s.save(ctx, record)
}

func (s *bunScheduler) save(ctx context.Context, record *TaskRecord) error {
	_, err := s.db.NewUpdate().Model(record).
		Column("status", "attempt", "last_error", "run_at", "lease_token", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: update task: %w", err)
	}
	return nil
}

func recordToTask(record *TaskRecord) *interfaces.Task {
	if record == nil {
		return nil
	}
	task := &interfaces.Task{
		TaskSpec: interfaces.TaskSpec{
			Key:         record.Key,
			Type:        record.Type,
			RunAt:       record.RunAt,
			MaxAttempts: record.MaxAttempts,
		},
		ID:        record.ID,
		Attempt:   record.Attempt,
		LastError: record.LastError,
		Status:    interfaces.TaskStatus(record.Status),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if record.Payload != nil {
		task.Payload = maps.Clone(record.Payload)
	}
	return task
}
