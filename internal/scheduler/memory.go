package scheduler

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	defaultMaxAttempts = 3
	defaultLease       = 15 * time.Minute
)

var (
	errRunAtRequired = errors.New("scheduler: run_at is required")
	errLeaseExpired  = errors.New("scheduler: lease expired before the task was settled")
)

// Option tunes either queue implementation.
type Option func(*settings)

type settings struct {
	now        func() time.Time
	id         func() string
	maxAttempt int
	retryBase  time.Duration
	lease      time.Duration
}

func newSettings(opts []Option) settings {
	cfg := settings{
		now:        time.Now,
		id:         uuid.NewString,
		maxAttempt: defaultMaxAttempts,
		lease:      defaultLease,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithClock overrides the clock used for RunAt comparisons and timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides task ID generation.
func WithIDGenerator(generator func() string) Option {
	return func(s *settings) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithRetryDelay sets the first retry delay. It doubles per attempt, see RetryDelay.
func WithRetryDelay(delay time.Duration) Option {
	return func(s *settings) {
		if delay >= 0 {
			s.retryBase = delay
		}
	}
}

// WithDefaultMaxAttempts applies to specs that leave MaxAttempts at zero.
func WithDefaultMaxAttempts(limit int) Option {
	return func(s *settings) {
		if limit > 0 {
			s.maxAttempt = limit
		}
	}
}

// WithLease sets how long a claimed task stays with its worker before it can
// be claimed again. It should outlast the job hard timeout.
func WithLease(lease time.Duration) Option {
	return func(s *settings) {
		if lease > 0 {
			s.lease = lease
		}
	}
}

// claimable reports whether task can be handed out at until.
func claimable(task *interfaces.Task, until time.Time) bool {
	switch task.Status {
	case interfaces.TaskStatusPending, interfaces.TaskStatusRunning:
		return !task.RunAt.After(until)
	}
	return false
}

func byRunAt(a, b *interfaces.Task) int {
	if c := a.RunAt.Compare(b.RunAt); c != 0 {
		return c
	}
	return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
}

// failAttempt books one failed attempt on task. The task is retried after
// the backoff delay unless abandon is set or its attempts are spent.
func (s settings) failAttempt(task *interfaces.Task, failure error, abandon bool) {
	now := s.now().UTC()
	task.Attempt++
	task.LastError = errorText(failure)
	task.UpdatedAt = now
	if abandon || (task.MaxAttempts > 0 && task.Attempt >= task.MaxAttempts) {
		task.Status = interfaces.TaskStatusFailed
		return
	}
	task.Status = interfaces.TaskStatusPending
	task.RunAt = now.Add(RetryDelay(s.retryBase, task.Attempt))
}

// NewInMemory creates a process-local task queue for single-process setups and tests.
func NewInMemory(opts ...Option) interfaces.Scheduler {
	return &memoryQueue{
		settings: newSettings(opts),
		tasks:    make(map[string]*interfaces.Task),
		pending:  make(map[string]string),
	}
}

type memoryQueue struct {
	settings

	mu      sync.Mutex
	tasks   map[string]*interfaces.Task
	pending map[string]string // key -> id of the pending task holding it
}

func (q *memoryQueue) Enqueue(_ context.Context, spec interfaces.TaskSpec) (*interfaces.Task, error) {
	if spec.RunAt.IsZero() {
		return nil, errRunAtRequired
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if spec.Key != "" {
		if id, ok := q.pending[spec.Key]; ok {
			return copyTask(q.tasks[id]), nil
		}
	}

	now := q.now().UTC()
	task := &interfaces.Task{
		TaskSpec:  spec,
		ID:        q.id(),
		Status:    interfaces.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	task.Payload = maps.Clone(spec.Payload)
	if task.MaxAttempts == 0 {
		task.MaxAttempts = q.maxAttempt
	}
	q.tasks[task.ID] = task
	if task.Key != "" {
		q.pending[task.Key] = task.ID
	}
	return copyTask(task), nil
}

// Cancel stops a pending or running task. Settled tasks are left as they are.
func (q *memoryQueue) Cancel(_ context.Context, id string) error {
	return q.update(id, func(task *interfaces.Task) error {
		if task.Status == interfaces.TaskStatusPending || task.Status == interfaces.TaskStatusRunning {
			task.Status = interfaces.TaskStatusCanceled
			task.UpdatedAt = q.now().UTC()
		}
		return nil
	})
}

func (q *memoryQueue) CancelByKey(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	q.mu.Lock()
	id, ok := q.pending[key]
	q.mu.Unlock()
	if !ok {
		return interfaces.ErrTaskNotFound
	}
	return q.Cancel(ctx, id)
}

func (q *memoryQueue) Get(_ context.Context, id string) (*interfaces.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[id]
	if !ok {
		return nil, interfaces.ErrTaskNotFound
	}
	return copyTask(task), nil
}

// GetByKey only sees pending tasks; a settled task releases its key.
func (q *memoryQueue) GetByKey(ctx context.Context, key string) (*interfaces.Task, error) {
	q.mu.Lock()
	id, ok := q.pending[key]
	q.mu.Unlock()
	if key == "" || !ok {
		return nil, interfaces.ErrTaskNotFound
	}
	return q.Get(ctx, id)
}

func (q *memoryQueue) ListDue(_ context.Context, until time.Time, limit int) ([]*interfaces.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.due(until, limit, interfaces.TaskStatusPending), nil
}

func (q *memoryQueue) Claim(_ context.Context, until time.Time, limit int) ([]*interfaces.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	claimed := make([]*interfaces.Task, 0)
	for _, candidate := range q.due(until, limit, "") {
		task := q.tasks[candidate.ID]
		if task.Status == interfaces.TaskStatusRunning {
			// the previous holder let the lease run out
			q.failAttempt(task, errLeaseExpired, false)
			if task.Status == interfaces.TaskStatusFailed {
				continue
			}
		}
		task.Status = interfaces.TaskStatusRunning
		task.RunAt = now.Add(q.lease)
		task.UpdatedAt = now
		q.release(task)
		claimed = append(claimed, copyTask(task))
	}
	return claimed, nil
}

// due collects copies of tasks due at until. An empty status means any
// claimable task. Callers hold q.mu.
func (q *memoryQueue) due(until time.Time, limit int, status interfaces.TaskStatus) []*interfaces.Task {
	out := make([]*interfaces.Task, 0)
	for _, task := range q.tasks {
		if !claimable(task, until) || (status != "" && task.Status != status) {
			continue
		}
		out = append(out, copyTask(task))
	}
	slices.SortStableFunc(out, byRunAt)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (q *memoryQueue) MarkDone(_ context.Context, id string) error {
	return q.settle(id, func(task *interfaces.Task) {
		task.Status = interfaces.TaskStatusCompleted
		task.UpdatedAt = q.now().UTC()
	})
}

func (q *memoryQueue) MarkFailed(_ context.Context, id string, failure error) error {
	return q.settle(id, func(task *interfaces.Task) {
		q.failAttempt(task, failure, false)
	})
}

func (q *memoryQueue) MarkAbandoned(_ context.Context, id string, failure error) error {
	return q.settle(id, func(task *interfaces.Task) {
		q.failAttempt(task, failure, true)
	})
}

// settle applies fn to a running task only.
func (q *memoryQueue) settle(id string, fn func(*interfaces.Task)) error {
	return q.update(id, func(task *interfaces.Task) error {
		if task.Status != interfaces.TaskStatusRunning {
			return interfaces.ErrTaskNotClaimed
		}
		fn(task)
		return nil
	})
}

// update applies fn under the lock and releases the task key once the task
// leaves the pending state.
func (q *memoryQueue) update(id string, fn func(*interfaces.Task) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[id]
	if !ok {
		return interfaces.ErrTaskNotFound
	}
	if err := fn(task); err != nil {
		return err
	}
	q.release(task)
	return nil
}

func (q *memoryQueue) release(task *interfaces.Task) {
	if task.Key != "" && task.Status != interfaces.TaskStatusPending && q.pending[task.Key] == task.ID {
		delete(q.pending, task.Key)
	}
}

func copyTask(task *interfaces.Task) *interfaces.Task {
	if task == nil {
		return nil
	}
	out := *task
	out.Payload = maps.Clone(task.Payload)
	return &out
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
