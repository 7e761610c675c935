package languages

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/identity"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	CacheKeyDefault = "language:default"
	CacheKeyActive  = "language:active"

	fallbackDefault = "fr"
)

var fallbackActive = []string{"fr", "en"}

const (
	MessageInvalidCode         = "Invalid language code"
	MessageDefaultMustBeActive = "Default language must be active"
	MessageOnlyOneDefault      = "Only one default language"
)

var (
	ErrLanguageRepositoryRequired = errors.New("languages: repository required")
	ErrLanguageExists             = errors.New("languages: code already exists")
)

// Service manages languages and resolves the default and active sets.
type Service interface {
	Create(ctx context.Context, input CreateLanguageInput) (*Language, error)
	Update(ctx context.Context, input UpdateLanguageInput) (*Language, error)
	SetDefault(ctx context.Context, code string) (*Language, error)
	Get(ctx context.Context, code string) (*Language, error)
	List(ctx context.Context) ([]*Language, error)
	Default(ctx context.Context) string
	Active(ctx context.Context) []string
	ClearCaches(ctx context.Context)
}

// CreateLanguageInput captures the information required to register a language.
type CreateLanguageInput struct {
	Code      string
	Name      string
	IsActive  *bool
	IsDefault bool
	Priority  int
}

// UpdateLanguageInput captures mutable language fields.
type UpdateLanguageInput struct {
	Code      string
	Name      *string
	IsActive  *bool
	IsDefault *bool
	Priority  *int
}

// Config drives the fallbacks used when the store cannot answer.
type Config struct {
	DefaultLanguage string
	ActiveLanguages []string
	CacheTTL        time.Duration
}

// ServiceOption configures service behaviour.
type ServiceOption func(*service)

// WithCache sets the cache used for the default and active language lookups.
func WithCache(cache interfaces.CacheProvider) ServiceOption {
	return func(s *service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithConfig overrides the fallback configuration.
func WithConfig(cfg Config) ServiceOption {
	return func(s *service) {
		s.cfg = cfg
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
	repo   LanguageRepository
	cache  interfaces.CacheProvider
	cfg    Config
	logger interfaces.Logger
	now    func() time.Time
}

// NewService constructs a language service instance.
func NewService(repo LanguageRepository, opts ...ServiceOption) Service {
	if repo == nil {
		panic(ErrLanguageRepositoryRequired)
	}
	s := &service{
		repo:   repo,
		logger: logging.NoOp(),
		now:    time.Now,
		cfg:    Config{CacheTTL: time.Hour},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreateLanguageInput) (*Language, error) {
	code := textutil.NormalizeLocale(input.Code)
	if code == "" {
		return nil, domain.ValidationError("code", MessageInvalidCode, input.Code)
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	if input.IsDefault && !isActive {
		return nil, domain.ValidationError("is_default", MessageDefaultMustBeActive, code)
	}

	if existing, err := s.repo.GetByCode(ctx, code); err == nil && existing != nil {
		return nil, ErrLanguageExists
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}
	if input.IsDefault {
		if err := s.ensureNoOtherDefault(ctx, uuid.Nil); err != nil {
			return nil, err
		}
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = code
	}
	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &Language{
		ID:        identity.LanguageUUID(code),
		Code:      code,
		Name:      name,
		IsActive:  isActive,
		IsDefault: input.IsDefault,
		Priority:  input.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.ClearCaches(ctx)
	return cloneLanguage(created), nil
}

func (s *service) Update(ctx context.Context, input UpdateLanguageInput) (*Language, error) {
	lang, err := s.Get(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			lang.Name = name
		}
	}
	if input.IsActive != nil {
		lang.IsActive = *input.IsActive
	}
	if input.IsDefault != nil {
		lang.IsDefault = *input.IsDefault
	}
	if input.Priority != nil {
		lang.Priority = *input.Priority
	}
	if lang.IsDefault && !lang.IsActive {
		return nil, domain.ValidationError("is_default", MessageDefaultMustBeActive, lang.Code)
	}
	if lang.IsDefault {
		if err := s.ensureNoOtherDefault(ctx, lang.ID); err != nil {
			return nil, err
		}
	}
	lang.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, lang)
	if err != nil {
		return nil, err
	}
	s.ClearCaches(ctx)
	return cloneLanguage(updated), nil
}

// SetDefault promotes code to the default language, demoting the previous one.
func (s *service) SetDefault(ctx context.Context, code string) (*Language, error) {
	lang, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !lang.IsActive {
		return nil, domain.ValidationError("is_default", MessageDefaultMustBeActive, lang.Code)
	}
	current, err := s.repo.GetDefault(ctx)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if current != nil && current.ID != lang.ID {
		current.IsDefault = false
		current.UpdatedAt = s.now().UTC()
		if _, err := s.repo.Update(ctx, current); err != nil {
			return nil, err
		}
	}
	lang.IsDefault = true
	lang.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, lang)
	if err != nil {
		return nil, err
	}
	s.ClearCaches(ctx)
	return cloneLanguage(updated), nil
}

func (s *service) Get(ctx context.Context, code string) (*Language, error) {
	normalized := textutil.NormalizeLocale(code)
	if normalized == "" {
		return nil, domain.ValidationError("code", MessageInvalidCode, code)
	}
	lang, err := s.repo.GetByCode(ctx, normalized)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("language", normalized)
		}
		return nil, err
	}
	return cloneLanguage(lang), nil
}

func (s *service) List(ctx context.Context) ([]*Language, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return cloneLanguageSlice(records), nil
}

// Default resolves the default language code, falling back to the configured
// default (or fr) when the store has none or fails.
func (s *service) Default(ctx context.Context) string {
	if cached, ok := s.cachedString(ctx, CacheKeyDefault); ok {
		return cached
	}
	code := ""
	lang, err := s.repo.GetDefault(ctx)
	switch {
	case err == nil && lang != nil:
		code = lang.Code
	case err != nil && !isNotFound(err):
		s.logger.Warn("language.default.lookup_failed", "error", err)
	}
	if code == "" {
		code = s.fallbackDefault()
	}
	s.store(ctx, CacheKeyDefault, code)
	return code
}

// Active resolves active language codes ordered by priority, then code.
func (s *service) Active(ctx context.Context) []string {
	if cached, ok := s.cachedList(ctx, CacheKeyActive); ok {
		return cached
	}
	var codes []string
	records, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Warn("language.active.lookup_failed", "error", err)
	}
	for _, record := range records {
		if record != nil && record.Code != "" {
			codes = append(codes, record.Code)
		}
	}
	if len(codes) == 0 {
		codes = s.fallbackActive()
	}
	s.store(ctx, CacheKeyActive, slices.Clone(codes))
	return codes
}

func (s *service) ClearCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{CacheKeyDefault, CacheKeyActive} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Debug("language.cache.delete_failed", "key", key, "error", err)
		}
	}
}

func (s *service) ensureNoOtherDefault(ctx context.Context, self uuid.UUID) error {
	current, err := s.repo.GetDefault(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if current != nil && current.ID != self {
		return domain.ValidationError("is_default", MessageOnlyOneDefault, current.Code)
	}
	return nil
}

func (s *service) fallbackDefault() string {
	if code := textutil.NormalizeLocale(s.cfg.DefaultLanguage); code != "" {
		return code
	}
	return fallbackDefault
}

func (s *service) fallbackActive() []string {
	if codes := textutil.NormalizeLocales(s.cfg.ActiveLanguages); len(codes) > 0 {
		return codes
	}
	return slices.Clone(fallbackActive)
}

func (s *service) cachedString(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", false
	}
	code, ok := value.(string)
	return code, ok && code != ""
}

func (s *service) cachedList(ctx context.Context, key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	codes, ok := value.([]string)
	if !ok || len(codes) == 0 {
		return nil, false
	}
	return slices.Clone(codes), true
}

func (s *service) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("language.cache.store_failed", "key", key, "error", err)
	}
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
