package locsync_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/internal/translations"
)

func captureShirt(t *testing.T, module *locsync.Module) {
	t.Helper()
	result, err := module.Capture(context.Background(), locsync.CaptureCommand{
		TenantID: "t1",
		Scope:    "product:42",
		Lang:     "fr",
		Fields: map[string]string{
			"label":      "Chemise bleue",
			"definition": "Une chemise en coton",
		},
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if result.KeysCreated != 2 {
		t.Fatalf("expected 2 keys created, got %d", result.KeysCreated)
	}
}

func syncCommand(inline bool) locsync.SyncCommand {
	return locsync.SyncCommand{
		TenantID:    "t1",
		Scope:       "product",
		SourceLang:  "fr",
		TargetLangs: []string{"en"},
		OnlyMissing: true,
		Inline:      inline,
	}
}

func TestModuleInlineSyncTranslatesCapturedSource(t *testing.T) {
	ctx := context.Background()
	module, err := locsync.New(locsync.DefaultConfig())
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	captureShirt(t, module)

	estimate, err := module.Estimate(ctx, syncCommand(false))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if estimate.Estimated != 2 || estimate.Details.Items != 2 {
		t.Fatalf("unexpected estimate %+v", estimate)
	}

	handle, err := module.Sync(ctx, syncCommand(true))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if handle == nil || handle.Job == nil {
		t.Fatal("expected inline job")
	}
	if handle.Job.State != domain.JobStateDone {
		t.Fatalf("expected done job, got %s", handle.Job.State)
	}
	if handle.Job.Stats == nil || handle.Job.Stats.Processed != 2 {
		t.Fatalf("expected 2 processed, got %+v", handle.Job.Stats)
	}

	list, err := module.Translations().List(ctx, "t1", translations.ListFilter{Language: "en"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 english translations, got %d", len(list))
	}
	for _, tr := range list {
		if tr.Origin != domain.OriginLLM {
			t.Fatalf("expected llm origin, got %s", tr.Origin)
		}
	}
}

func TestModuleSyncRejectsMissingSelector(t *testing.T) {
	module, err := locsync.New(locsync.DefaultConfig())
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	cmd := syncCommand(true)
	cmd.Scope = ""

	handle, err := module.Sync(context.Background(), cmd)
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if handle != nil {
		t.Fatalf("expected no job to be created, got %+v", handle)
	}
	jobs, _ := module.Jobs().List(context.Background(), "t1")
	if len(jobs) != 0 {
		t.Fatalf("expected no persisted jobs, got %d", len(jobs))
	}
}

func TestModuleVectorizeRequiresEmbeddings(t *testing.T) {
	module, err := locsync.New(locsync.DefaultConfig())
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	_, err = module.Vectorize(context.Background(), locsync.VectorizeCommand{TenantID: "t1", Scopes: []string{"product"}})
	if !errors.Is(err, locsync.ErrEmbeddingsDisabled) {
		t.Fatalf("expected ErrEmbeddingsDisabled, got %v", err)
	}
}

func TestModuleOpenSQLiteRunsQueuedPipeline(t *testing.T) {
	ctx := context.Background()
	cfg := locsync.DefaultConfig()
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = "file:locsync_module?mode=memory&cache=shared&_fk=1"
	cfg.Cache.Backend = "sql"
	cfg.Features.Embeddings = true
	cfg.Providers.Embedding.Kind = "static"

	module, err := locsync.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer module.Close()

	if _, err := module.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	languages, err := module.Languages().List(ctx)
	if err != nil {
		t.Fatalf("list languages: %v", err)
	}
	if len(languages) != 2 {
		t.Fatalf("expected 2 seeded languages, got %d", len(languages))
	}

	captureShirt(t, module)

	handle, err := module.Sync(ctx, syncCommand(false))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if handle.TaskID == "" {
		t.Fatal("expected a queued task")
	}
	if _, err := module.Worker().Process(ctx); err != nil {
		t.Fatalf("process sync: %v", err)
	}
	job, err := module.Jobs().Get(ctx, handle.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.State != domain.JobStateDone {
		t.Fatalf("expected done job, got %s (%v)", job.State, job.Errors)
	}

	outcome, err := module.Vectorize(ctx, locsync.VectorizeCommand{TenantID: "t1", Scopes: []string{"product"}})
	if err != nil {
		t.Fatalf("vectorize: %v", err)
	}
	if outcome.Task == nil || outcome.Task.Type != scheduler.TaskTypeEmbeddingsVectorize {
		t.Fatalf("expected queued sweep, got %+v", outcome)
	}
	if _, err := module.Worker().Process(ctx); err != nil {
		t.Fatalf("process sweep: %v", err)
	}

	list, err := module.Translations().List(ctx, "t1", translations.ListFilter{Scopes: []string{"product"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 2 source and 2 english rows, got %d", len(list))
	}
	for _, tr := range list {
		if len(tr.Embedding) != 384 {
			t.Fatalf("expected 384-d embedding on %s/%s, got %d", tr.Language, tr.Scope, len(tr.Embedding))
		}
	}
}
