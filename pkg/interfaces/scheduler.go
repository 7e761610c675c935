package interfaces

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTaskNotFound is returned when no task matches an ID or key.
	ErrTaskNotFound = errors.New("scheduler: task not found")
	// ErrTaskNotClaimed is returned when settling a task that is not running,
	// for instance one another worker already settled.
	ErrTaskNotClaimed = errors.New("scheduler: task is not claimed")
)

// Scheduler is the durable task queue between job submission and workers.
// A task only points at work (a translation job ID, a vectorize request); the
// job record itself lives in the job repository.
type Scheduler interface {
	// Enqueue stores a pending task. A pending task with the same key is
	// returned as is, so resubmitting the same job does not queue it twice.
	Enqueue(ctx context.Context, spec TaskSpec) (*Task, error)
	Cancel(ctx context.Context, id string) error
	CancelByKey(ctx context.Context, key string) error
	Get(ctx context.Context, id string) (*Task, error)
	GetByKey(ctx context.Context, key string) (*Task, error)
	// ListDue returns up to limit pending tasks with RunAt <= until, oldest
	// first, without claiming them.
	ListDue(ctx context.Context, until time.Time, limit int) ([]*Task, error)
	// Claim atomically moves up to limit due tasks to running and returns
	// them, oldest first. A task is handed to one caller only. Running tasks
	// whose lease ran out before until are claimed again.
	Claim(ctx context.Context, until time.Time, limit int) ([]*Task, error)
	// MarkDone, MarkFailed and MarkAbandoned settle a claimed task and return
	// ErrTaskNotClaimed when it is no longer running.
	MarkDone(ctx context.Context, id string) error
	// MarkFailed counts a failed attempt and reschedules the task until
	// MaxAttempts is spent.
	MarkFailed(ctx context.Context, id string, err error) error
	// MarkAbandoned fails the task for good, ignoring the attempt budget.
	MarkAbandoned(ctx context.Context, id string, err error) error
}

// TaskStatus is the queue state of a task. It is separate from the state
// of the translation job the task runs.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCanceled  TaskStatus = "canceled"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskSpec describes a task to enqueue.
type TaskSpec struct {
	Key         string
	Type        string // e.g. locsync.translations.sync
	RunAt       time.Time
	Payload     map[string]any
	MaxAttempts int // zero means unlimited
}

// Task is a stored queue entry.
// While running, RunAt holds the lease deadline.
type Task struct {
	TaskSpec
	ID        string
	Attempt   int
	LastError string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
