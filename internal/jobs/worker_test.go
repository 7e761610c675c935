package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

func enqueueTask(t *testing.T, queue interfaces.Scheduler, taskType string) *interfaces.Task {
	t.Helper()
	task, err := queue.Enqueue(context.Background(), interfaces.TaskSpec{
		Key:         taskType + ":1",
		Type:        taskType,
		RunAt:       time.Now().Add(-time.Second),
		Payload:     map[string]any{"tenant_id": "t1"},
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return task
}

func TestWorkerProcessMarksSuccessfulTasksDone(t *testing.T) {
	ctx := context.Background()
	queue := scheduler.NewInMemory()
	task := enqueueTask(t, queue, scheduler.TaskTypeEmbeddingsVectorize)

	var seen atomic.Int32
	worker := jobs.NewWorker(queue, jobs.WithHandler(scheduler.TaskTypeEmbeddingsVectorize, func(_ context.Context, got *interfaces.Task) error {
		if got.Payload["tenant_id"] != "t1" {
			t.Errorf("unexpected payload %+v", got.Payload)
		}
		seen.Add(1)
		return nil
	}))

	handled, err := worker.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if handled != 1 || seen.Load() != 1 {
		t.Fatalf("expected one handled task, got %d/%d", handled, seen.Load())
	}
	stored, _ := queue.Get(ctx, task.ID)
	if stored.Status != interfaces.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}

	handled, err = worker.Process(ctx)
	if err != nil || handled != 0 {
		t.Fatalf("expected empty queue, got %d (%v)", handled, err)
	}
}

func TestWorkerRequeuesRetryableFailures(t *testing.T) {
	ctx := context.Background()
	queue := scheduler.NewInMemory()
	task := enqueueTask(t, queue, scheduler.TaskTypeEmbeddingsVectorize)

	worker := jobs.NewWorker(queue, jobs.WithHandler(scheduler.TaskTypeEmbeddingsVectorize, func(context.Context, *interfaces.Task) error {
		return domain.ProviderTransient(errors.New("503"), "embedding provider unavailable")
	}))
	if _, err := worker.Process(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	stored, _ := queue.Get(ctx, task.ID)
	if stored.Status != interfaces.TaskStatusPending || stored.Attempt != 1 {
		t.Fatalf("expected pending retry, got %s attempt %d", stored.Status, stored.Attempt)
	}
	if stored.LastError == "" {
		t.Fatalf("expected last error recorded")
	}
}

func TestWorkerAbandonsTerminalFailures(t *testing.T) {
	ctx := context.Background()
	queue := scheduler.NewInMemory()
	task := enqueueTask(t, queue, scheduler.TaskTypeEmbeddingsVectorize)

	worker := jobs.NewWorker(queue, jobs.WithHandler(scheduler.TaskTypeEmbeddingsVectorize, func(context.Context, *interfaces.Task) error {
		return goerrors.New("Scopes must be non-empty strings", goerrors.CategoryValidation)
	}))
	if _, err := worker.Process(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	stored, _ := queue.Get(ctx, task.ID)
	if stored.Status != interfaces.TaskStatusFailed || stored.Attempt != 1 {
		t.Fatalf("expected abandoned task, got %s attempt %d", stored.Status, stored.Attempt)
	}
}

func TestWorkerAbandonsUnknownTaskTypes(t *testing.T) {
	ctx := context.Background()
	queue := scheduler.NewInMemory()
	task := enqueueTask(t, queue, "unknown.type")

	worker := jobs.NewWorker(queue)
	if _, err := worker.Process(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	stored, _ := queue.Get(ctx, task.ID)
	if stored.Status != interfaces.TaskStatusFailed {
		t.Fatalf("expected failed task, got %s", stored.Status)
	}
	if stored.LastError != jobs.ErrNoHandler.Error() {
		t.Fatalf("unexpected last error %q", stored.LastError)
	}
}

func TestWorkerAbandonsSyncTaskWithBadPayload(t *testing.T) {
	ctx := context.Background()
	queue := scheduler.NewInMemory()
	executor, _ := newExecutor(t, &stubRunner{}, jobs.WithScheduler(queue))
	task := enqueueTask(t, queue, scheduler.TaskTypeTranslationsSync)

	worker := jobs.NewWorker(queue, jobs.WithExecutor(executor))
	if _, err := worker.Process(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	stored, _ := queue.Get(ctx, task.ID)
	if stored.Status != interfaces.TaskStatusFailed {
		t.Fatalf("expected failed task, got %s", stored.Status)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	queue := scheduler.NewInMemory()
	var calls atomic.Int32
	worker := jobs.NewWorker(queue, jobs.WithHandler(scheduler.TaskTypeEmbeddingsVectorize, func(context.Context, *interfaces.Task) error {
		calls.Add(1)
		return nil
	}))
	enqueueTask(t, queue, scheduler.TaskTypeEmbeddingsVectorize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("worker never handled the task")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestWorkersSharingQueueRunTaskOnce(t *testing.T) {
	ctx := context.Background()
	queue := scheduler.NewInMemory()
	task := enqueueTask(t, queue, scheduler.TaskTypeTranslationsSync)

	var runs atomic.Int32
	release := make(chan struct{})
	handler := func(context.Context, *interfaces.Task) error {
		runs.Add(1)
		<-release
		return nil
	}
	first := jobs.NewWorker(queue, jobs.WithHandler(scheduler.TaskTypeTranslationsSync, handler))
	second := jobs.NewWorker(queue, jobs.WithHandler(scheduler.TaskTypeTranslationsSync, handler))

	done := make(chan int, 1)
	go func() {
		handled, _ := first.Process(ctx)
		done <- handled
	}()
	for runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	handled, err := second.Process(ctx)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if handled != 0 {
		t.Fatalf("expected claimed task to be skipped by the second worker, got %d", handled)
	}
	close(release)
	if got := <-done; got != 1 {
		t.Fatalf("expected first worker to handle the task, got %d", got)
	}
	if runs.Load() != 1 {
		t.Fatalf("expected a single run, got %d", runs.Load())
	}
	stored, _ := queue.Get(ctx, task.ID)
	if stored.Status != interfaces.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
}
