package jobs_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/keys"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/internal/retry"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

type countingGenerator struct {
	name  string
	err   error
	calls atomic.Int32
}

func (g *countingGenerator) Name() string { return g.name }

func (g *countingGenerator) Generate(context.Context, interfaces.GenerateRequest) (string, error) {
	g.calls.Add(1)
	if g.err != nil {
		return "", g.err
	}
	return "Label", nil
}

func newPipeline(t *testing.T, primary, fallback interfaces.TextGenerator) *jobs.Executor {
	t.Helper()
	keySvc := keys.NewService(keys.NewMemoryRepository())
	cfg := translations.DefaultConfig()
	cfg.Retry = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, Multiplier: 1, MaxInterval: time.Millisecond}
	trSvc := translations.NewService(translations.NewMemoryRepository(),
		translations.WithConfig(cfg),
		translations.WithKeys(keySvc),
		translations.WithPrimary(primary),
		translations.WithFallback(fallback),
	)
	if _, err := trSvc.CaptureSource(context.Background(), translations.CaptureRequest{
		TenantID: "t1",
		Scope:    "glossary",
		Lang:     "fr",
		Fields:   map[string]string{"label": "Étiquette"},
	}); err != nil {
		t.Fatalf("capture: %v", err)
	}
	executor, _ := newExecutor(t, orchestrator.New(keySvc, trSvc))
	return executor
}

func TestProviderValidationErrorFailsJobWithoutFallback(t *testing.T) {
	ctx := context.Background()
	primary := &countingGenerator{name: "primary", err: domain.InvalidInput(domain.MessageInvalidInput)}
	fallback := &countingGenerator{name: "fallback"}
	executor := newPipeline(t, primary, fallback)

	handle, err := executor.Submit(ctx, jobs.SubmitRequest{Request: syncRequest(), Mode: domain.SubmitInline})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	job := handle.Job
	if job.State != domain.JobStateFailed || job.Retryable {
		t.Fatalf("expected terminal failure, got %s retryable=%v", job.State, job.Retryable)
	}
	if len(job.Errors) == 0 || job.Errors[len(job.Errors)-1] != domain.MessageInvalidInput {
		t.Fatalf("expected %q recorded, got %v", domain.MessageInvalidInput, job.Errors)
	}
	if primary.calls.Load() != 1 || fallback.calls.Load() != 0 {
		t.Fatalf("expected one primary call and no fallback, got %d/%d", primary.calls.Load(), fallback.calls.Load())
	}
}

func TestProviderTimeoutFailsInlineJob(t *testing.T) {
	ctx := context.Background()
	primary := &countingGenerator{name: "primary", err: domain.ProviderTransient(context.DeadlineExceeded, "openai request timed out")}
	executor := newPipeline(t, primary, nil)

	handle, err := executor.Submit(ctx, jobs.SubmitRequest{Request: syncRequest(), Mode: domain.SubmitInline})
	if !domain.HasTextCode(err, domain.TextCodeTranslationTimeout) {
		t.Fatalf("expected translation timeout, got %v", err)
	}
	job := handle.Job
	if job.State != domain.JobStateFailed {
		t.Fatalf("expected failed job, got %s", job.State)
	}
	if job.Errors[len(job.Errors)-1] != domain.MessageTranslationTimeout {
		t.Fatalf("expected timeout recorded, got %v", job.Errors)
	}
	if primary.calls.Load() != 3 {
		t.Fatalf("expected the retry budget to be spent, got %d calls", primary.calls.Load())
	}
}
