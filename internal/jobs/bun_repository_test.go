package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/pkg/testsupport"
	"github.com/google/uuid"
)

func newBunRepo(t *testing.T, name string) *BunJobRepository {
	t.Helper()
	db, err := testsupport.NewBunSQLite(context.Background(), name, (*TranslationJob)(nil))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBunJobRepository(db)
}

func TestBunJobRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newBunRepo(t, "jobs_lifecycle")
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	req := orchestrator.Request{
		TenantID:    "t1",
		Scope:       "glossary",
		SourceLang:  "fr",
		TargetLangs: []string{"en", "es"},
		OnlyMissing: true,
		IncludeSEO:  true,
	}
	job := newJobFromRequest(uuid.New(), "glossary-nightly", req, now)
	if _, err := repo.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.AttachTask(ctx, job.ID, "task-1"); err != nil {
		t.Fatalf("attach task: %v", err)
	}

	running, err := repo.Transition(ctx, job.ID, domain.JobStateQueued, domain.JobStateRunning, now.Add(time.Second))
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if running.State != domain.JobStateRunning || running.Attempts != 1 || running.StartedAt == nil {
		t.Fatalf("unexpected running job %+v", running)
	}
	if running.TaskID != "task-1" {
		t.Fatalf("expected attached task id, got %q", running.TaskID)
	}
	if got := running.Request(); got.Scope != "glossary" || len(got.TargetLangs) != 2 || !got.OnlyMissing {
		t.Fatalf("unexpected request %+v", got)
	}

	_, err = repo.Transition(ctx, job.ID, domain.JobStateQueued, domain.JobStateRunning, now)
	var conflict *StateConflictError
	if !errors.As(err, &conflict) || conflict.Actual != domain.JobStateRunning {
		t.Fatalf("expected state conflict, got %v", err)
	}

	stats := orchestrator.NewStats()
	stats.Processed = 3
	stats.PerLang["en"] = 3
	stats.Errors = []string{"glossary:x [es]: Translation failed"}
	running.Stats = &stats
	running.Errors = stats.Errors
	running.State = domain.JobStateDone
	running.TaskID = ""
	if _, err := repo.Update(ctx, running); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.JobStateDone || stored.Stats == nil || stored.Stats.PerLang["en"] != 3 || len(stored.Errors) != 1 {
		t.Fatalf("unexpected stored job %+v", stored)
	}
	if stored.TaskID != "task-1" {
		t.Fatalf("update must not clear task id, got %q", stored.TaskID)
	}

	other := newJobFromRequest(uuid.New(), "other", orchestrator.Request{TenantID: "t2", Scope: "x", SourceLang: "fr", TargetLangs: []string{"en"}}, now)
	if _, err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}
	list, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != job.ID {
		t.Fatalf("expected tenant scoped list, got %d", len(list))
	}

	var notFound *NotFoundError
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestJobRepositoryFinishRequiresRunningAttempt(t *testing.T) {
	repos := map[string]JobRepository{
		"memory": NewMemoryRepository(),
		"bun":    newBunRepo(t, "jobs_finish"),
	}
	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
			req := orchestrator.Request{TenantID: "t1", Scope: "glossary", SourceLang: "fr", TargetLangs: []string{"en"}}
			job := newJobFromRequest(uuid.New(), "finish", req, now)
			if _, err := repo.Create(ctx, job); err != nil {
				t.Fatalf("create: %v", err)
			}
			running, err := repo.Transition(ctx, job.ID, domain.JobStateQueued, domain.JobStateRunning, now)
			if err != nil {
				t.Fatalf("transition: %v", err)
			}

			stale := *running
			stale.Attempts = running.Attempts - 1
			stale.State = domain.JobStateDone
			var conflict *StateConflictError
			if _, err := repo.Finish(ctx, &stale); !errors.As(err, &conflict) {
				t.Fatalf("expected conflict for an older attempt, got %v", err)
			}

			if _, err := repo.Transition(ctx, job.ID, domain.JobStateRunning, domain.JobStateFailed, now.Add(time.Second)); err != nil {
				t.Fatalf("fail: %v", err)
			}
			done := *running
			done.State = domain.JobStateDone
			if _, err := repo.Finish(ctx, &done); !errors.As(err, &conflict) || conflict.Actual != domain.JobStateFailed {
				t.Fatalf("expected conflict against failed job, got %v", err)
			}
			stored, _ := repo.GetByID(ctx, job.ID)
			if stored.State != domain.JobStateFailed {
				t.Fatalf("expected failed job to stay failed, got %s", stored.State)
			}
		})
	}
}
