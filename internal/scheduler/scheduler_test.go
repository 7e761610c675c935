package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/goliatone/go-locsync/pkg/testsupport"
	"github.com/google/uuid"
)

type schedulerFactory func(t *testing.T, now func() time.Time) interfaces.Scheduler

func factories() map[string]schedulerFactory {
	return map[string]schedulerFactory{
		"memory": func(t *testing.T, now func() time.Time) interfaces.Scheduler {
			return scheduler.NewInMemory(scheduler.WithClock(now), scheduler.WithDefaultMaxAttempts(2), scheduler.WithLease(time.Minute))
		},
		"bun": func(t *testing.T, now func() time.Time) interfaces.Scheduler {
			t.Helper()
			db, err := testsupport.NewBunSQLite(context.Background(), "scheduler_"+uuid.NewString(), (*scheduler.TaskRecord)(nil))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			return scheduler.NewBun(db, scheduler.WithClock(now), scheduler.WithDefaultMaxAttempts(2), scheduler.WithLease(time.Minute))
		},
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })
			jobID := uuid.New()

			task, err := sched.Enqueue(ctx, interfaces.TaskSpec{
				Key:     scheduler.TranslationSyncTaskKey(jobID),
				Type:    scheduler.TaskTypeTranslationsSync,
				RunAt:   now,
				Payload: map[string]any{"job_id": jobID.String()},
			})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			if task.MaxAttempts != 2 {
				t.Fatalf("expected default max attempts 2, got %d", task.MaxAttempts)
			}

			again, err := sched.Enqueue(ctx, interfaces.TaskSpec{
				Key:   scheduler.TranslationSyncTaskKey(jobID),
				Type:  scheduler.TaskTypeTranslationsSync,
				RunAt: now,
			})
			if err != nil {
				t.Fatalf("enqueue duplicate: %v", err)
			}
			if again.ID != task.ID {
				t.Fatalf("expected pending task to be reused, got %s vs %s", again.ID, task.ID)
			}

			due, err := sched.ListDue(ctx, now, 10)
			if err != nil {
				t.Fatalf("list due: %v", err)
			}
			if len(due) != 1 || due[0].Payload["job_id"] != jobID.String() {
				t.Fatalf("unexpected due tasks %+v", due)
			}

			mustClaim(t, sched, now, task.ID)
			if err := sched.MarkFailed(ctx, task.ID, errors.New("transient")); err != nil {
				t.Fatalf("mark failed: %v", err)
			}
			stored, err := sched.Get(ctx, task.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if stored.Status != interfaces.TaskStatusPending || stored.Attempt != 1 || stored.LastError != "transient" {
				t.Fatalf("expected requeued task, got %+v", stored)
			}

			mustClaim(t, sched, now, task.ID)
			if err := sched.MarkFailed(ctx, task.ID, errors.New("still failing")); err != nil {
				t.Fatalf("mark failed again: %v", err)
			}
			stored, _ = sched.Get(ctx, task.ID)
			if stored.Status != interfaces.TaskStatusFailed {
				t.Fatalf("expected exhausted task to fail, got %s", stored.Status)
			}

			due, _ = sched.ListDue(ctx, now, 10)
			if len(due) != 0 {
				t.Fatalf("expected no due tasks, got %d", len(due))
			}
		})
	}
}

func TestSchedulerAbandonAndCancel(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })

			first, err := sched.Enqueue(ctx, interfaces.TaskSpec{Key: "a", Type: scheduler.TaskTypeEmbeddingsVectorize, RunAt: now, MaxAttempts: 5})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			if err := sched.MarkAbandoned(ctx, first.ID, errors.New("invalid scopes")); !errors.Is(err, interfaces.ErrTaskNotClaimed) {
				t.Fatalf("expected unclaimed task to be refused, got %v", err)
			}
			mustClaim(t, sched, now, first.ID)
			if err := sched.MarkAbandoned(ctx, first.ID, errors.New("invalid scopes")); err != nil {
				t.Fatalf("abandon: %v", err)
			}
			stored, _ := sched.Get(ctx, first.ID)
			if stored.Status != interfaces.TaskStatusFailed || stored.Attempt != 1 {
				t.Fatalf("expected abandoned task to fail immediately, got %+v", stored)
			}

			second, err := sched.Enqueue(ctx, interfaces.TaskSpec{Key: "b", Type: scheduler.TaskTypeEmbeddingsVectorize, RunAt: now})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			if _, err := sched.GetByKey(ctx, "b"); err != nil {
				t.Fatalf("get by key: %v", err)
			}
			if err := sched.CancelByKey(ctx, "b"); err != nil {
				t.Fatalf("cancel by key: %v", err)
			}
			stored, _ = sched.Get(ctx, second.ID)
			if stored.Status != interfaces.TaskStatusCanceled {
				t.Fatalf("expected canceled task, got %s", stored.Status)
			}
			if _, err := sched.GetByKey(ctx, "b"); !errors.Is(err, interfaces.ErrTaskNotFound) {
				t.Fatalf("expected canceled key to be released, got %v", err)
			}
			if err := sched.MarkDone(ctx, "missing"); !errors.Is(err, interfaces.ErrTaskNotFound) {
				t.Fatalf("expected ErrTaskNotFound, got %v", err)
			}
		})
	}
}

func TestSchedulerListDueOrdersByRunAt(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })
			for i, offset := range []time.Duration{2 * time.Minute, 0, time.Minute, time.Hour} {
				if _, err := sched.Enqueue(ctx, interfaces.TaskSpec{
					Key:   fmt.Sprintf("k%d", i),
					Type:  scheduler.TaskTypeTranslationsSync,
					RunAt: now.Add(-time.Hour).Add(offset),
				}); err != nil {
					t.Fatalf("enqueue: %v", err)
				}
			}
			due, err := sched.ListDue(ctx, now.Add(-time.Minute), 2)
			if err != nil {
				t.Fatalf("list due: %v", err)
			}
			if len(due) != 2 || due[0].Key != "k1" || due[1].Key != "k2" {
				t.Fatalf("unexpected order %+v", due)
			}
		})
	}
}

func mustClaim(t *testing.T, sched interfaces.Scheduler, now time.Time, id string) *interfaces.Task {
	t.Helper()
	claimed, err := sched.Claim(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	for _, task := range claimed {
		if task.ID == id {
			if task.Status != interfaces.TaskStatusRunning {
				t.Fatalf("expected claimed task to be running, got %s", task.Status)
			}
			return task
		}
	}
	t.Fatalf("expected task %s to be claimed, got %+v", id, claimed)
	return nil
}

func TestSchedulerClaimHandsOutTaskOnce(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })

			task, err := sched.Enqueue(ctx, interfaces.TaskSpec{Key: "once", Type: scheduler.TaskTypeTranslationsSync, RunAt: now})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			mustClaim(t, sched, now, task.ID)

			again, err := sched.Claim(ctx, now, 10)
			if err != nil {
				t.Fatalf("second claim: %v", err)
			}
			if len(again) != 0 {
				t.Fatalf("expected running task to stay with its holder, got %+v", again)
			}
			if due, _ := sched.ListDue(ctx, now, 10); len(due) != 0 {
				t.Fatalf("expected running task to leave the due list, got %d", len(due))
			}
			if _, err := sched.GetByKey(ctx, "once"); !errors.Is(err, interfaces.ErrTaskNotFound) {
				t.Fatalf("expected claimed key to be released, got %v", err)
			}
		})
	}
}

func TestSchedulerSettledTaskStaysSettled(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })

			task, err := sched.Enqueue(ctx, interfaces.TaskSpec{Key: "done", Type: scheduler.TaskTypeTranslationsSync, RunAt: now})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			mustClaim(t, sched, now, task.ID)
			if err := sched.MarkDone(ctx, task.ID); err != nil {
				t.Fatalf("mark done: %v", err)
			}

			if err := sched.MarkDone(ctx, task.ID); !errors.Is(err, interfaces.ErrTaskNotClaimed) {
				t.Fatalf("expected ErrTaskNotClaimed on second done, got %v", err)
			}
			if err := sched.MarkFailed(ctx, task.ID, errors.New("late failure")); !errors.Is(err, interfaces.ErrTaskNotClaimed) {
				t.Fatalf("expected ErrTaskNotClaimed on late failure, got %v", err)
			}
			if err := sched.Cancel(ctx, task.ID); err != nil {
				t.Fatalf("cancel settled task: %v", err)
			}
			stored, _ := sched.Get(ctx, task.ID)
			if stored.Status != interfaces.TaskStatusCompleted || stored.Attempt != 0 || stored.LastError != "" {
				t.Fatalf("expected completed task to stay untouched, got %+v", stored)
			}
			if claimed, _ := sched.Claim(ctx, now.Add(time.Hour), 10); len(claimed) != 0 {
				t.Fatalf("expected completed task not to be claimed, got %+v", claimed)
			}
		})
	}
}

func TestSchedulerExpiredLeaseIsReclaimed(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })

			task, err := sched.Enqueue(ctx, interfaces.TaskSpec{Key: "lease", Type: scheduler.TaskTypeTranslationsSync, RunAt: now, MaxAttempts: 3})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			mustClaim(t, sched, now, task.ID)

			if claimed, _ := sched.Claim(ctx, now.Add(30*time.Second), 10); len(claimed) != 0 {
				t.Fatalf("expected live lease to be respected, got %+v", claimed)
			}

			now = now.Add(2 * time.Minute)
			reclaimed := mustClaim(t, sched, now, task.ID)
			if reclaimed.Attempt != 1 || reclaimed.LastError == "" {
				t.Fatalf("expected expired lease to count an attempt, got %+v", reclaimed)
			}
			if err := sched.MarkDone(ctx, task.ID); err != nil {
				t.Fatalf("mark done after reclaim: %v", err)
			}
			stored, _ := sched.Get(ctx, task.ID)
			if stored.Status != interfaces.TaskStatusCompleted {
				t.Fatalf("expected completed task, got %s", stored.Status)
			}
		})
	}
}

func TestSchedulerExpiredLeaseSpendsBudget(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			sched := factory(t, func() time.Time { return now })

			task, err := sched.Enqueue(ctx, interfaces.TaskSpec{Key: "budget", Type: scheduler.TaskTypeTranslationsSync, RunAt: now, MaxAttempts: 1})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			mustClaim(t, sched, now, task.ID)

			now = now.Add(2 * time.Minute)
			if claimed, _ := sched.Claim(ctx, now, 10); len(claimed) != 0 {
				t.Fatalf("expected spent task not to be claimed, got %+v", claimed)
			}
			stored, _ := sched.Get(ctx, task.ID)
			if stored.Status != interfaces.TaskStatusFailed || stored.Attempt != 1 {
				t.Fatalf("expected lease expiry to fail the task, got %+v", stored)
			}
		})
	}
}

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	if scheduler.RetryDelay(0, 3) != 0 {
		t.Fatalf("expected zero base to disable delay")
	}
	if got := scheduler.RetryDelay(time.Second, 3); got != 4*time.Second {
		t.Fatalf("expected 4s, got %s", got)
	}
	if got := scheduler.RetryDelay(time.Minute, 10); got != 5*time.Minute {
		t.Fatalf("expected cap at 5m, got %s", got)
	}
}
