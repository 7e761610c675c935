package translations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/keys"
	"github.com/goliatone/go-locsync/internal/retry"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	name    string
	results []scriptedResult
	prompts []string
}

type scriptedResult struct {
	text string
	err  error
}

func (g *scriptedGenerator) Name() string { return g.name }

func (g *scriptedGenerator) Generate(_ context.Context, req interfaces.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, req.Prompt)
	if len(g.results) == 0 {
		return "", errors.New("no scripted result")
	}
	next := g.results[0]
	if len(g.results) > 1 {
		g.results = g.results[1:]
	}
	return next.text, next.err
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type fixedEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *fixedEmbedder) Name() string   { return "fixed" }
func (e *fixedEmbedder) Dimension() int { return len(e.vector) }
func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), e.vector...)
	}
	return out, nil
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, Multiplier: 1, MaxInterval: time.Millisecond}
	return cfg
}

func newKey(t *testing.T, tenantID, scope, name string) *keys.TranslatableKey {
	t.Helper()
	svc := keys.NewService(keys.NewMemoryRepository())
	key, err := svc.Create(context.Background(), keys.CreateKeyInput{TenantID: tenantID, Scope: scope, Key: name})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	return key
}

func TestTranslateUsesPrimaryAndCaches(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{text: " Label "}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary))
	key := newKey(t, "t1", "glossary", "label")

	result, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Text != "Label" || result.Origin != domain.OriginLLM {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.SourceChecksum != textutil.Checksum("Étiquette") {
		t.Fatalf("unexpected checksum %s", result.SourceChecksum)
	}
	if primary.prompts[0] != "Translate 'Étiquette' from fr to en with neutral tone, max 100 characters" {
		t.Fatalf("unexpected prompt %q", primary.prompts[0])
	}

	again, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if err != nil {
		t.Fatalf("translate again: %v", err)
	}
	if again.Origin != domain.OriginTM || again.Text != "Label" {
		t.Fatalf("expected cache hit, got %+v", again)
	}
	if primary.calls() != 1 {
		t.Fatalf("expected a single provider call, got %d", primary.calls())
	}
}

func TestTranslateRetriesTransientErrorsThenFallsBack(t *testing.T) {
	ctx := context.Background()
	transient := domain.ProviderTransient(nil, "rate limited")
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{err: transient}}}
	fallback := &scriptedGenerator{name: "fallback", results: []scriptedResult{{text: "Label"}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary), WithFallback(fallback))
	key := newKey(t, "t1", "glossary", "label")

	result, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if primary.calls() != 3 {
		t.Fatalf("expected 3 primary attempts, got %d", primary.calls())
	}
	if fallback.calls() != 1 {
		t.Fatalf("expected one fallback call, got %d", fallback.calls())
	}
	if result.Provider != "fallback" || result.Origin != domain.OriginLLM {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTranslateFailsWhenFallbackFails(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{err: domain.ProviderTransient(nil, "timeout")}}}
	fallback := &scriptedGenerator{name: "fallback", results: []scriptedResult{{err: domain.ProviderTransient(nil, "down")}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary), WithFallback(fallback))
	key := newKey(t, "t1", "glossary", "label")

	_, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if domain.Message(err) != domain.MessageTranslationFailed {
		t.Fatalf("expected translation failed, got %v", err)
	}
	if fallback.calls() != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fallback.calls())
	}
}

func TestTranslateDoesNotRetryRejectedRequests(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{err: domain.ProviderRejected(nil, "bad request")}}}
	fallback := &scriptedGenerator{name: "fallback", results: []scriptedResult{{text: "Label"}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary), WithFallback(fallback))
	key := newKey(t, "t1", "glossary", "label")

	_, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if !domain.HasTextCode(err, domain.TextCodeProviderRejected) {
		t.Fatalf("expected provider rejection to surface, got %v", err)
	}
	if primary.calls() != 1 {
		t.Fatalf("expected no retries for rejected request, got %d calls", primary.calls())
	}
	if fallback.calls() != 0 {
		t.Fatalf("expected rejected request to skip the fallback, got %d calls", fallback.calls())
	}
}

func TestTranslateKeepsValidationErrorsFromProvider(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{err: domain.InvalidInput(domain.MessageInvalidInput)}}}
	fallback := &scriptedGenerator{name: "fallback", results: []scriptedResult{{text: "Label"}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary), WithFallback(fallback))
	key := newKey(t, "t1", "glossary", "label")

	_, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if !domain.IsValidation(err) || domain.Message(err) != domain.MessageInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if primary.calls() != 1 || fallback.calls() != 0 {
		t.Fatalf("expected a single primary call and no fallback, got %d/%d", primary.calls(), fallback.calls())
	}
}

func TestTranslateReportsSpentTimeouts(t *testing.T) {
	ctx := context.Background()
	timeout := domain.ProviderTransient(context.DeadlineExceeded, "openai request timed out")
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{err: timeout}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary))
	key := newKey(t, "t1", "glossary", "label")

	_, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if !domain.HasTextCode(err, domain.TextCodeTranslationTimeout) {
		t.Fatalf("expected translation timeout, got %v", err)
	}
	if primary.calls() != 3 {
		t.Fatalf("expected the retry budget to be spent, got %d calls", primary.calls())
	}

	fallback := &scriptedGenerator{name: "fallback", results: []scriptedResult{{err: timeout}}}
	primary = &scriptedGenerator{name: "primary", results: []scriptedResult{{err: domain.ProviderTransient(nil, "rate limited")}}}
	svc = NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary), WithFallback(fallback))
	_, err = svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if !domain.HasTextCode(err, domain.TextCodeTranslationTimeout) {
		t.Fatalf("expected fallback timeout to be reported, got %v", err)
	}
}

func TestTranslateRejectsEmptyProviderText(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{text: "   "}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary))
	key := newKey(t, "t1", "glossary", "label")

	_, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "Étiquette", SourceLang: "fr", TargetLang: "en", TenantID: "t1"})
	if domain.Message(err) != domain.MessageTextRequired {
		t.Fatalf("expected text required, got %v", err)
	}
}

func TestTranslateValidatesRequest(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(), WithPrimary(&scriptedGenerator{name: "p", results: []scriptedResult{{text: "x"}}}))
	key := newKey(t, "t1", "glossary", "label")

	if _, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "a", SourceLang: "fr", TargetLang: "en", TenantID: "t2"}); !goerrors.IsCategory(err, goerrors.CategoryAuthz) {
		t.Fatalf("expected tenant mismatch, got %v", err)
	}
	if _, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "a", SourceLang: "fr", TargetLang: "english", TenantID: "t1"}); !domain.IsValidation(err) {
		t.Fatalf("expected invalid target language, got %v", err)
	}
	if _, err := svc.Translate(ctx, TranslateRequest{Key: key, SourceText: "<p> </p>", SourceLang: "fr", TargetLang: "en", TenantID: "t1"}); domain.Message(err) != domain.MessageTextRequired {
		t.Fatalf("expected text required for empty source, got %v", err)
	}
}

func TestTranslateAppliesKeyTemplateAndHints(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedGenerator{name: "primary", results: []scriptedResult{{text: "Label"}}}
	svc := NewService(NewMemoryRepository(), WithConfig(fastConfig()), WithPrimary(primary))
	key := newKey(t, "t1", "glossary", "label")
	key.PromptTemplate = &keys.PromptTemplate{Tone: "formal", MaxLength: 40}

	_, err := svc.Translate(ctx, TranslateRequest{
		Key:        key,
		SourceText: "Étiquette",
		SourceLang: "fr",
		TargetLang: "en",
		TenantID:   "t1",
		Hints:      keys.PromptTemplate{MaxLength: 20},
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if primary.prompts[0] != "Translate 'Étiquette' from fr to en with formal tone, max 20 characters" {
		t.Fatalf("unexpected prompt %q", primary.prompts[0])
	}
}

func TestStoreIsIdempotentOnSourceChecksum(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	key := newKey(t, "t1", "glossary", "label")
	checksum := textutil.Checksum("Étiquette")

	first, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Label", SourceText: "Étiquette", SourceChecksum: checksum, Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !first.Created || first.Translation.Version != 1 {
		t.Fatalf("expected created version 1, got %+v", first)
	}

	second, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Tag", SourceText: "Étiquette", SourceChecksum: checksum, Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if !second.Unchanged || second.Translation.Version != 1 || second.Translation.Text != "Label" {
		t.Fatalf("expected unchanged row, got %+v", second)
	}

	third, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Tag", SourceText: "Étiquette 2", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store new source: %v", err)
	}
	if !third.Updated || third.Translation.Version != 2 || third.Translation.Text != "Tag" {
		t.Fatalf("expected version bump, got %+v", third)
	}
	if third.Translation.ID != first.Translation.ID {
		t.Fatalf("expected the live row to be superseded in place")
	}

	rows, err := svc.List(ctx, "t1", ListFilter{KeyIDs: []uuid.UUID{key.ID}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single live row, got %d", len(rows))
	}
}

func TestStoreChecksTenantAndText(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	key := newKey(t, "t1", "glossary", "label")

	_, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Label", SourceText: "x", Origin: domain.OriginLLM, TenantID: "t2"})
	if domain.Message(err) != domain.MessageTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %v", err)
	}
	_, err = svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: " ", SourceText: "x", Origin: domain.OriginLLM, TenantID: "t1"})
	if domain.Message(err) != domain.MessageTextRequired {
		t.Fatalf("expected text required, got %v", err)
	}
	_, err = svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Label", SourceText: "x", Origin: domain.Origin("robot"), TenantID: "t1"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected invalid origin, got %v", err)
	}
	if _, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "", SourceText: "x", Origin: domain.OriginHuman, TenantID: "t1"}); err != nil {
		t.Fatalf("expected empty human text to be accepted: %v", err)
	}
}

func TestStoreAttachesQualityAlerts(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	key := newKey(t, "t1", "seo", "title")

	res, err := svc.Store(ctx, StoreRequest{
		Key:        key,
		TargetLang: "en",
		Text:       strings.Repeat("a", 61) + " {{brand}}",
		SourceText: "Titre {{marque}}",
		Origin:     domain.OriginLLM,
		TenantID:   "t1",
		IncludeSEO: true,
		Alerts:     []Alert{{Type: "custom", Field: "title", Message: "from caller"}},
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	types := map[string]bool{}
	for _, alert := range res.Translation.Alerts {
		types[alert.Type] = true
	}
	if !types["custom"] || !types[AlertSEOLength] || !types[AlertPlaceholderMismatch] {
		t.Fatalf("unexpected alerts %+v", res.Translation.Alerts)
	}
}

func TestStoreEmbedsInlineWhenSyncEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.SyncEmbedding = true
	cfg.Dimension = 2
	embedder := &fixedEmbedder{vector: []float32{3, 4}}
	svc := NewService(NewMemoryRepository(), WithConfig(cfg), WithEmbedder(embedder))
	key := newKey(t, "t1", "glossary", "label")

	res, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Label", SourceText: "Étiquette", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	got := res.Translation.Embedding
	if len(got) != 2 || got[0] != 0.6 || got[1] != 0.8 {
		t.Fatalf("expected normalized embedding, got %v", got)
	}

	embedder.vector = []float32{0, 0}
	res, err = svc.Store(ctx, StoreRequest{Key: key, TargetLang: "es", Text: "Etiqueta", SourceText: "Étiquette", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store zero vector: %v", err)
	}
	if res.Translation.Embedding != nil {
		t.Fatalf("expected zero vector stored as nil, got %v", res.Translation.Embedding)
	}
}

func TestCaptureSourceCreatesKeysAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	keySvc := keys.NewService(keys.NewMemoryRepository())
	svc := NewService(NewMemoryRepository(), WithKeys(keySvc))

	req := CaptureRequest{
		TenantID: "t1",
		Scope:    "glossary:terms",
		Lang:     "FR",
		Fields:   map[string]string{"label": "Étiquette", "definition": "Une définition", "notes": " "},
	}
	first, err := svc.CaptureSource(ctx, req)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if first.KeysCreated != 2 || first.Created != 2 {
		t.Fatalf("unexpected first capture %+v", first)
	}
	for _, tr := range first.Translations {
		if tr.Origin != domain.OriginHuman || tr.Language != "fr" {
			t.Fatalf("unexpected captured row %+v", tr)
		}
	}

	second, err := svc.CaptureSource(ctx, req)
	if err != nil {
		t.Fatalf("capture again: %v", err)
	}
	if second.KeysCreated != 0 || second.Unchanged != 2 {
		t.Fatalf("expected idempotent capture, got %+v", second)
	}

	req.Fields = map[string]string{"label": "Étiquette modifiée"}
	third, err := svc.CaptureSource(ctx, req)
	if err != nil {
		t.Fatalf("capture change: %v", err)
	}
	if third.Updated != 1 || third.Translations[0].Version != 2 {
		t.Fatalf("expected updated source, got %+v", third)
	}
}

func TestReviewOverridesTranslation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	key := newKey(t, "t1", "glossary", "label")

	stored, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Lable", SourceText: "Étiquette", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	reviewed, err := svc.Review(ctx, ReviewRequest{TenantID: "t1", ID: stored.Translation.ID, Text: "Label", Reviewer: "ana"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Origin != domain.OriginHuman || reviewed.Version != 2 || reviewed.Reviewer != "ana" || reviewed.Text != "Label" {
		t.Fatalf("unexpected reviewed row %+v", reviewed)
	}
	if reviewed.SourceChecksum != stored.Translation.SourceChecksum {
		t.Fatalf("expected source checksum to be preserved")
	}

	if _, err := svc.Review(ctx, ReviewRequest{TenantID: "t2", ID: stored.Translation.ID, Text: "x", Reviewer: "bob"}); !goerrors.IsNotFound(err) {
		t.Fatalf("expected cross-tenant review to be not found, got %v", err)
	}
	if _, err := svc.Review(ctx, ReviewRequest{TenantID: "t1", ID: stored.Translation.ID, Text: "x"}); !domain.IsValidation(err) {
		t.Fatalf("expected reviewer validation, got %v", err)
	}
}

func TestGetReportsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	key := newKey(t, "t1", "glossary", "label")

	if _, err := svc.Get(ctx, "t1", key.ID, "en"); !goerrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type interleavingRepository struct {
	TranslationRepository
	once       sync.Once
	beforeNext func()
}

func (r *interleavingRepository) Update(ctx context.Context, tr *Translation) (*Translation, error) {
	r.once.Do(r.beforeNext)
	return r.TranslationRepository.Update(ctx, tr)
}

func TestStoreReappliesChangeAfterConcurrentReview(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryRepository()
	key := newKey(t, "t1", "glossary", "label")

	reviewer := NewService(shared)
	stored, err := reviewer.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Lable", SourceText: "Étiquette", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	repo := &interleavingRepository{TranslationRepository: shared}
	repo.beforeNext = func() {
		if _, err := reviewer.Review(ctx, ReviewRequest{TenantID: "t1", ID: stored.Translation.ID, Text: "Label", Reviewer: "ana"}); err != nil {
			t.Errorf("review: %v", err)
		}
	}
	writer := NewService(repo)

	result, err := writer.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Tag", SourceText: "Étiquette 2", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store after review: %v", err)
	}
	if !result.Updated || result.Translation.Version != 3 || result.Translation.Text != "Tag" {
		t.Fatalf("expected version 3 on top of the review, got %+v", result.Translation)
	}
}

func TestMemoryRepositoryRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)
	key := newKey(t, "t1", "glossary", "label")

	stored, err := svc.Store(ctx, StoreRequest{Key: key, TargetLang: "en", Text: "Label", SourceText: "Étiquette", Origin: domain.OriginLLM, TenantID: "t1"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	stale := cloneTranslation(stored.Translation)
	stale.Text = "Stale"

	_, err = repo.Update(ctx, stale)
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) || conflict.Actual != 1 {
		t.Fatalf("expected version conflict, got %v", err)
	}
}
