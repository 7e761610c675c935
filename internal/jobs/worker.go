package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

// TaskHandler processes one queued task. Retryable errors send the task
// back to the queue; any other error abandons it.
type TaskHandler func(ctx context.Context, task *interfaces.Task) error

// ErrNoHandler is recorded on tasks whose type has no registered handler.
var ErrNoHandler = errors.New("jobs: no handler registered for task type")

// Worker drains due tasks from the scheduler and dispatches them by type.
type Worker struct {
	scheduler interfaces.Scheduler
	handlers  map[string]TaskHandler
	logger    interfaces.Logger
	now       func() time.Time
	batchSize int
}

type Option func(*Worker)

// WithHandler registers the handler for a task type.
func WithHandler(taskType string, handler TaskHandler) Option {
	return func(w *Worker) {
		if taskType != "" && handler != nil {
			w.handlers[taskType] = handler
		}
	}
}

// WithExecutor registers the executor for translation sync tasks.
func WithExecutor(executor *Executor) Option {
	return func(w *Worker) {
		if executor != nil {
			w.handlers[scheduler.TaskTypeTranslationsSync] = executor.HandleTask
		}
	}
}

func WithWorkerLogger(logger interfaces.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithWorkerClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func NewWorker(s interfaces.Scheduler, opts ...Option) *Worker {
	w := &Worker{
		scheduler: s,
		handlers:  make(map[string]TaskHandler),
		logger:    logging.NoOp(),
		now:       time.Now,
		batchSize: 10,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process handles every task due now and returns how many were taken.
func (w *Worker) Process(ctx context.Context) (int, error) {
	if w.scheduler == nil {
		return 0, errors.New("jobs: scheduler is nil")
	}
	tasks, err := w.scheduler.Claim(ctx, w.now(), w.batchSize)
	if err != nil {
		return 0, err
	}
	handled := 0
	for _, task := range tasks {
		if task == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return handled, err
		}
		handled++
		w.dispatch(ctx, task)
	}
	return handled, nil
}

func (w *Worker) dispatch(ctx context.Context, task *interfaces.Task) {
	logger := logging.WithFields(w.logger, map[string]any{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempt":   task.Attempt + 1,
	})
	handler, ok := w.handlers[task.Type]
	if !ok {
		logger.Warn("task.dispatch.unhandled")
		settle(w.scheduler.MarkAbandoned(ctx, task.ID, ErrNoHandler), logger)
		return
	}

	err := handler(ctx, task)
	// the outcome is written even when ctx was cancelled mid-task
	settleCtx := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		logger.Debug("task.dispatch.done")
		settle(w.scheduler.MarkDone(settleCtx, task.ID), logger)
	case domain.IsRetryable(err) || domain.IsContextError(err):
		logger.Warn("task.dispatch.retry", "error", domain.Message(err))
		settle(w.scheduler.MarkFailed(settleCtx, task.ID, err), logger)
	default:
		logger.Error("task.dispatch.abandoned", "error", domain.Message(err))
		settle(w.scheduler.MarkAbandoned(settleCtx, task.ID, err), logger)
	}
}

func settle(err error, logger interfaces.Logger) {
	if err != nil {
		logger.Error("task.settle.failed", "error", err)
	}
}

// Run polls the scheduler every interval until ctx is cancelled. A batch
// that filled up is followed immediately by another poll.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	w.logger.Info("worker.run.started", "interval", interval.String(), "batch_size", w.batchSize)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		handled, err := w.Process(ctx)
		if err != nil && !domain.IsContextError(err) {
			w.logger.Error("worker.poll.failed", "error", err)
		}
		if ctx.Err() != nil {
			w.logger.Info("worker.run.stopped")
			return nil
		}
		if handled >= w.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			w.logger.Info("worker.run.stopped")
			return nil
		case <-ticker.C:
		}
	}
}
