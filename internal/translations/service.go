package translations

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-locsync/internal/adapters/memory"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/identity"
	"github.com/goliatone/go-locsync/internal/keys"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/providers"
	"github.com/goliatone/go-locsync/internal/retry"
	"github.com/goliatone/go-locsync/internal/tenant"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/internal/tm"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	messageKeyRequired      = "Key is required"
	messageInvalidLanguage  = "Invalid language code"
	messageInvalidOrigin    = "Invalid origin"
	messageChecksumRequired = "Source checksum is required"
	messageReviewerRequired = "Reviewer is required"
	messageScopeRequired    = "Scope is required"
	messageFieldsRequired   = "At least one field is required"
)

const maxVersionedAttempts = 3

var (
	ErrTranslationRepositoryRequired = errors.New("translations: repository required")
	ErrKeyServiceRequired            = errors.New("translations: key service required")
	ErrNoProvider                    = errors.New("translations: no translation provider configured")
)

// Service translates, stores and reviews translations.
type Service interface {
	Translate(ctx context.Context, req TranslateRequest) (TranslateResult, error)
	Store(ctx context.Context, req StoreRequest) (*StoreResult, error)
	CaptureSource(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
	Review(ctx context.Context, req ReviewRequest) (*Translation, error)
	Get(ctx context.Context, tenantID string, keyID uuid.UUID, language string) (*Translation, error)
	List(ctx context.Context, tenantID string, filter ListFilter) ([]*Translation, error)
}

// TranslateRequest asks for a machine translation of a key's source text.
// Hints override the key's prompt template field by field.
type TranslateRequest struct {
	Key        *keys.TranslatableKey
	SourceText string
	SourceLang string
	TargetLang string
	TenantID   string
	Hints      keys.PromptTemplate
}

// TranslateResult carries the produced text and where it came from.
type TranslateResult struct {
	Text           string
	Origin         domain.Origin
	SourceChecksum string
	Provider       string
}

// StoreRequest persists a translation for a key and target language.
type StoreRequest struct {
	Key            *keys.TranslatableKey
	TargetLang     string
	Text           string
	SourceText     string
	SourceChecksum string
	Origin         domain.Origin
	Field          string
	TenantID       string
	Alerts         []Alert
	Reviewer       string
	IncludeSEO     bool
}

// StoreResult reports the stored row and which branch was taken.
type StoreResult struct {
	Translation *Translation
	Created     bool
	Updated     bool
	Unchanged   bool
}

// CaptureRequest records human-authored source text for a set of fields.
type CaptureRequest struct {
	TenantID string
	Scope    string
	Lang     string
	Fields   map[string]string
	Reviewer string
}

// CaptureResult summarises a capture.
type CaptureResult struct {
	KeysCreated  int
	Created      int
	Updated      int
	Unchanged    int
	Translations []*Translation
}

// ReviewRequest replaces a translation with reviewed human text.
type ReviewRequest struct {
	TenantID string
	ID       uuid.UUID
	Text     string
	Reviewer string
}

// Config captures service behaviour.
type Config struct {
	CacheTTL      time.Duration
	Retry         retry.Policy
	SyncEmbedding bool
	Dimension     int
}

// DefaultConfig mirrors the runtime defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:  24 * time.Hour,
		Retry:     retry.DefaultPolicy(),
		Dimension: 384,
	}
}

// ServiceOption configures service behaviour.
type ServiceOption func(*service)

// WithConfig overrides the service configuration.
func WithConfig(cfg Config) ServiceOption {
	return func(s *service) {
		s.cfg = cfg
	}
}

// WithCache sets the translation memory.
func WithCache(cache tm.Cache) ServiceOption {
	return func(s *service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithPrimary sets the primary generator, called under the retry policy.
func WithPrimary(gen interfaces.TextGenerator) ServiceOption {
	return func(s *service) {
		s.primary = gen
	}
}

// WithFallback sets the generator called once after the primary has spent its
// retries on transient failures.
func WithFallback(gen interfaces.TextGenerator) ServiceOption {
	return func(s *service) {
		s.fallback = gen
	}
}

// WithEmbedder sets the embedder used when sync embedding is enabled.
func WithEmbedder(embedder interfaces.Embedder) ServiceOption {
	return func(s *service) {
		s.embedder = embedder
	}
}

// WithKeys sets the key service used by CaptureSource.
func WithKeys(svc keys.Service) ServiceOption {
	return func(s *service) {
		s.keys = svc
	}
}

// WithLogger sets the module logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNow overrides the time source (primarily for tests).
func WithNow(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	repo     TranslationRepository
	keys     keys.Service
	cache    tm.Cache
	primary  interfaces.TextGenerator
	fallback interfaces.TextGenerator
	embedder interfaces.Embedder
	cfg      Config
	now      func() time.Time
	logger   interfaces.Logger
}

// NewService constructs a translation service.
func NewService(repo TranslationRepository, opts ...ServiceOption) Service {
	if repo == nil {
		panic(ErrTranslationRepositoryRequired)
	}
	s := &service{
		repo:   repo,
		cache:  tm.NewProviderCache(memory.NewCache(), nil),
		cfg:    DefaultConfig(),
		now:    time.Now,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Translate(ctx context.Context, req TranslateRequest) (TranslateResult, error) {
	if req.Key == nil {
		return TranslateResult{}, domain.ValidationError("key", messageKeyRequired, nil)
	}
	if req.TenantID != req.Key.TenantID {
		return TranslateResult{}, domain.TenantMismatch()
	}
	target := textutil.NormalizeLocale(req.TargetLang)
	if target == "" {
		return TranslateResult{}, domain.ValidationError("target_lang", messageInvalidLanguage, req.TargetLang)
	}
	source := textutil.NormalizeLocale(req.SourceLang)
	if source == "" {
		return TranslateResult{}, domain.ValidationError("source_lang", messageInvalidLanguage, req.SourceLang)
	}
	prepared := textutil.NormalizeText(req.SourceText, textutil.NormalizeOptions{KeepNewlines: true})
	if prepared == "" {
		return TranslateResult{}, domain.TextRequired()
	}

	checksum := textutil.Checksum(req.SourceText)
	logger := logging.WithFields(logging.WithJobContext(s.logger, req.TenantID, "", target), map[string]any{"key": req.Key.Label()})

	if text, hit := s.cache.Lookup(ctx, req.Key.ID, checksum, target, req.TenantID); hit {
		logger.Debug("translation.cache.hit")
		return TranslateResult{Text: text, Origin: domain.OriginTM, SourceChecksum: checksum, Provider: "tm"}, nil
	}
	if s.primary == nil {
		return TranslateResult{}, domain.TranslationFailed(ErrNoProvider)
	}

	tpl := mergeTemplate(req.Key.Template(), req.Hints)
	prompt, err := providers.RenderPrompt(providers.PromptInput{
		Text:         prepared,
		SourceLang:   source,
		TargetLang:   target,
		Tone:         tpl.Tone,
		MaxLength:    tpl.MaxLength,
		Instructions: tpl.Instructions,
	})
	if err != nil {
		return TranslateResult{}, domain.InvalidInput("prompt could not be rendered")
	}

	text, provider, err := s.generate(ctx, prompt, logger)
	if err != nil {
		return TranslateResult{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return TranslateResult{}, domain.TextRequired()
	}

	s.cache.Store(ctx, req.Key.ID, checksum, target, req.TenantID, text, s.cfg.CacheTTL)
	logger.Debug("translation.translate.ok", "provider", provider)
	return TranslateResult{Text: text, Origin: domain.OriginLLM, SourceChecksum: checksum, Provider: provider}, nil
}

// generate calls the primary under the retry policy. The fallback only gets
// a turn once the primary has spent its retries on transient failures;
// rejected input is returned as is.
func (s *service) generate(ctx context.Context, prompt interfaces.GenerateRequest, logger interfaces.Logger) (string, string, error) {
	text, err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
		return s.primary.Generate(ctx, prompt)
	}, func(attempt int, err error, wait time.Duration) {
		logger.Warn("translation.provider.retry", "provider", s.primary.Name(), "attempt", attempt, "wait", wait.String(), "error", domain.Message(err))
	})
	if err == nil {
		return text, s.primary.Name(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", "", ctxErr
	}
	logger.Warn("translation.provider.failed", "provider", s.primary.Name(), "error", domain.Message(err))
	if !domain.IsRetryable(err) {
		return "", "", err
	}
	if s.fallback == nil {
		return "", "", providerFailure(err)
	}

	text, err = s.fallback.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", ctxErr
		}
		logger.Warn("translation.fallback.failed", "provider", s.fallback.Name(), "error", domain.Message(err))
		if !domain.IsRetryable(err) {
			return "", "", err
		}
		return "", "", providerFailure(err)
	}
	return text, s.fallback.Name(), nil
}

// providerFailure reports spent transient failures, keeping timeouts apart.
func providerFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TranslationTimeout(err)
	}
	return domain.TranslationFailed(err)
}

func (s *service) Store(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	if req.Key == nil {
		return nil, domain.ValidationError("key", messageKeyRequired, nil)
	}
	if req.TenantID != req.Key.TenantID {
		return nil, domain.TenantMismatch()
	}
	lang := textutil.NormalizeLocale(req.TargetLang)
	if lang == "" {
		return nil, domain.ValidationError("target_lang", messageInvalidLanguage, req.TargetLang)
	}
	if !req.Origin.Valid() {
		return nil, domain.ValidationError("origin", messageInvalidOrigin, string(req.Origin))
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Origin != domain.OriginHuman {
		return nil, domain.TextRequired()
	}
	checksum := strings.TrimSpace(req.SourceChecksum)
	if checksum == "" && strings.TrimSpace(req.SourceText) != "" {
		checksum = textutil.Checksum(req.SourceText)
	}
	if checksum == "" {
		return nil, domain.ValidationError("source_checksum", messageChecksumRequired, nil)
	}

	logger := logging.WithFields(logging.WithJobContext(s.logger, req.TenantID, "", lang), map[string]any{"key": req.Key.Label()})

	existing, err := s.repo.Get(ctx, req.TenantID, req.Key.ID, lang)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.SourceChecksum == checksum {
		logger.Debug("translation.store.unchanged", "version", existing.Version)
		return &StoreResult{Translation: cloneTranslation(existing), Unchanged: true}, nil
	}

	field := strings.TrimSpace(req.Field)
	if field == "" {
		field = req.Key.Key
	}
	alerts := mergeAlerts(req.Alerts, QualityAlerts(field, req.SourceText, text, req.IncludeSEO))
	embedding, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if existing == nil {
		record := &Translation{
			ID:             identity.TranslationUUID(req.Key.ID, lang, req.TenantID),
			KeyID:          req.Key.ID,
			Scope:          req.Key.Scope,
			Language:       lang,
			TenantID:       req.TenantID,
			Text:           text,
			Version:        1,
			Origin:         req.Origin,
			SourceChecksum: checksum,
			Alerts:         alerts,
			Embedding:      embedding,
			Reviewer:       strings.TrimSpace(req.Reviewer),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		created, err := s.repo.Create(ctx, record)
		if err == nil {
			s.remember(ctx, created)
			logger.Debug("translation.store.created", "origin", created.Origin, "alerts", len(created.Alerts))
			return &StoreResult{Translation: cloneTranslation(created), Created: true}, nil
		}
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		existing, err = s.repo.Get(ctx, req.TenantID, req.Key.ID, lang)
		if err != nil {
			return nil, err
		}
		if existing.SourceChecksum == checksum {
			return &StoreResult{Translation: cloneTranslation(existing), Unchanged: true}, nil
		}
	}

	updated, changed, err := s.updateVersioned(ctx, existing, logger, func(record *Translation) bool {
		if record.SourceChecksum == checksum {
			return false
		}
		record.Text = text
		record.Origin = req.Origin
		record.SourceChecksum = checksum
		record.Alerts = alerts
		record.Embedding = embedding
		record.Reviewer = strings.TrimSpace(req.Reviewer)
		record.UpdatedAt = now
		return true
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &StoreResult{Translation: cloneTranslation(updated), Unchanged: true}, nil
	}
	s.remember(ctx, updated)
	logger.Debug("translation.store.updated", "origin", updated.Origin, "version", updated.Version, "alerts", len(updated.Alerts))
	return &StoreResult{Translation: cloneTranslation(updated), Updated: true}, nil
}

// updateVersioned applies change to a copy of current and writes it with the
// next version. A concurrent write makes the repository refuse the update;
// the row is then reloaded and change applied again. change reports false
// when the stored row needs no write.
func (s *service) updateVersioned(ctx context.Context, current *Translation, logger interfaces.Logger, change func(*Translation) bool) (*Translation, bool, error) {
	for attempt := 1; ; attempt++ {
		record := cloneTranslation(current)
		if !change(record) {
			return current, false, nil
		}
		record.Version = current.Version + 1

		updated, err := s.repo.Update(ctx, record)
		if err == nil {
			return updated, true, nil
		}
		var conflict *VersionConflictError
		if !errors.As(err, &conflict) || attempt >= maxVersionedAttempts {
			return nil, false, err
		}
		logger.Debug("translation.update.version_conflict", "expected", conflict.Expected, "actual", conflict.Actual)
		current, err = s.repo.GetByID(ctx, current.ID)
		if err != nil {
			return nil, false, err
		}
	}
}

func (s *service) CaptureSource(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if s.keys == nil {
		return nil, ErrKeyServiceRequired
	}
	if err := tenant.ValidateID(req.TenantID); err != nil {
		return nil, err
	}
	lang := textutil.NormalizeLocale(req.Lang)
	if lang == "" {
		return nil, domain.ValidationError("lang", messageInvalidLanguage, req.Lang)
	}
	scope := strings.TrimSpace(req.Scope)
	if scope == "" {
		return nil, domain.ValidationError("scope", messageScopeRequired, req.Scope)
	}
	if len(req.Fields) == 0 {
		return nil, domain.ValidationError("fields", messageFieldsRequired, nil)
	}

	names := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &CaptureResult{}
	for _, name := range names {
		text := strings.TrimSpace(req.Fields[name])
		if text == "" {
			continue
		}
		key, created, err := s.keys.GetOrCreate(ctx, keys.CreateKeyInput{
			TenantID: req.TenantID,
			Scope:    scope,
			Key:      name,
		})
		if err != nil {
			return nil, err
		}
		if created {
			result.KeysCreated++
		}
		stored, err := s.Store(ctx, StoreRequest{
			Key:            key,
			TargetLang:     lang,
			Text:           text,
			SourceText:     text,
			SourceChecksum: textutil.Checksum(text),
			Origin:         domain.OriginHuman,
			TenantID:       req.TenantID,
			Reviewer:       req.Reviewer,
		})
		if err != nil {
			return nil, err
		}
		switch {
		case stored.Created:
			result.Created++
		case stored.Updated:
			result.Updated++
		default:
			result.Unchanged++
		}
		result.Translations = append(result.Translations, stored.Translation)
	}
	s.logger.Info("translation.capture.ok",
		"tenant_id", req.TenantID,
		"scope", scope,
		"language", lang,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
	)
	return result, nil
}

func (s *service) Review(ctx context.Context, req ReviewRequest) (*Translation, error) {
	if err := tenant.ValidateID(req.TenantID); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("translation", req.ID.String())
		}
		return nil, err
	}
	if record.TenantID != req.TenantID {
		return nil, domain.NotFound("translation", req.ID.String())
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, domain.TextRequired()
	}
	reviewer := strings.TrimSpace(req.Reviewer)
	if reviewer == "" {
		return nil, domain.ValidationError("reviewer", messageReviewerRequired, req.Reviewer)
	}
	embedding, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updated, _, err := s.updateVersioned(ctx, record, s.logger, func(tr *Translation) bool {
		tr.Text = text
		tr.Origin = domain.OriginHuman
		tr.Reviewer = reviewer
		tr.Alerts = nil
		tr.Embedding = embedding
		tr.UpdatedAt = now
		return true
	})
	if err != nil {
		return nil, err
	}
	s.remember(ctx, updated)
	s.logger.Info("translation.review.ok", "tenant_id", updated.TenantID, "translation_id", updated.ID, "version", updated.Version, "reviewer", reviewer)
	return cloneTranslation(updated), nil
}

func (s *service) Get(ctx context.Context, tenantID string, keyID uuid.UUID, language string) (*Translation, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	lang := textutil.NormalizeLocale(language)
	if lang == "" {
		return nil, domain.ValidationError("language", messageInvalidLanguage, language)
	}
	record, err := s.repo.Get(ctx, tenantID, keyID, lang)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("translation", keyID.String()+":"+lang)
		}
		return nil, err
	}
	return cloneTranslation(record), nil
}

func (s *service) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Translation, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	if filter.Language != "" {
		lang := textutil.NormalizeLocale(filter.Language)
		if lang == "" {
			return nil, domain.ValidationError("language", messageInvalidLanguage, filter.Language)
		}
		filter.Language = lang
	}
	records, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	return cloneTranslationSlice(records), nil
}

// embed returns the normalized vector for text when sync embedding is on.
func (s *service) embed(ctx context.Context, text string) ([]float32, error) {
	if !s.cfg.SyncEmbedding || s.embedder == nil || text == "" {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, domain.ProviderRejected(nil, "embedder returned an unexpected number of vectors")
	}
	if s.cfg.Dimension > 0 && len(vectors[0]) != s.cfg.Dimension {
		return nil, domain.ProviderRejected(nil, "embedding dimension mismatch")
	}
	return NormalizeVector(vectors[0]), nil
}

// remember writes stored text back to the translation memory so later
// lookups for the same source reuse it. Rows served from memory are skipped.
func (s *service) remember(ctx context.Context, tr *Translation) {
	if tr == nil || tr.Origin == domain.OriginTM || tr.Text == "" {
		return
	}
	s.cache.Store(ctx, tr.KeyID, tr.SourceChecksum, tr.Language, tr.TenantID, tr.Text, s.cfg.CacheTTL)
}

func mergeTemplate(base, hints keys.PromptTemplate) keys.PromptTemplate {
	if strings.TrimSpace(hints.Tone) != "" {
		base.Tone = hints.Tone
	}
	if hints.MaxLength > 0 {
		base.MaxLength = hints.MaxLength
	}
	if strings.TrimSpace(hints.Instructions) != "" {
		base.Instructions = hints.Instructions
	}
	return base
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
