package keys

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/identity"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/tenant"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/internal/validation"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	MessageKeyExists     = "A key with this scope and tenant already exists"
	TextCodeKeyExists    = "KEY_EXISTS"
	maxIdentifierLength  = 255
	messageScopeRequired = "Scope is required"
	messageKeyRequired   = "Key is required"
)

var ErrKeyRepositoryRequired = errors.New("keys: repository required")

// Service manages translatable keys.
type Service interface {
	Create(ctx context.Context, input CreateKeyInput) (*TranslatableKey, error)
	GetOrCreate(ctx context.Context, input CreateKeyInput) (*TranslatableKey, bool, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*TranslatableKey, error)
	GetMany(ctx context.Context, tenantID string, ids []uuid.UUID) ([]*TranslatableKey, error)
	ListByScope(ctx context.Context, tenantID, scope string, fields []string) ([]*TranslatableKey, error)
	UpdatePromptTemplate(ctx context.Context, tenantID string, id uuid.UUID, template map[string]any) (*TranslatableKey, error)
}

// CreateKeyInput captures the information required to register a key.
// PromptTemplate is the raw decoded document and is validated against the
// prompt template schema.
type CreateKeyInput struct {
	TenantID       string
	Scope          string
	Key            string
	IsBlocking     bool
	PromptTemplate map[string]any
}

// ServiceOption configures service behaviour.
type ServiceOption func(*service)

// WithNow overrides the time source (primarily for tests).
func WithNow(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
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

type service struct {
	repo   KeyRepository
	now    func() time.Time
	logger interfaces.Logger
}

// NewService constructs a key service instance.
func NewService(repo KeyRepository, opts ...ServiceOption) Service {
	if repo == nil {
		panic(ErrKeyRepositoryRequired)
	}
	s := &service{
		repo:   repo,
		now:    time.Now,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checksum identifies a key independently of its tenant.
func Checksum(scope, key string) string {
	return textutil.Checksum(scope + ":" + key)
}

func (s *service) Create(ctx context.Context, input CreateKeyInput) (*TranslatableKey, error) {
	record, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByNaturalKey(ctx, record.TenantID, record.Scope, record.Key); err == nil {
		return nil, keyExists(record)
	} else if !isNotFound(err) {
		return nil, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return nil, keyExists(record)
		}
		return nil, err
	}
	s.logger.Debug("key.create.ok", "tenant_id", created.TenantID, "key", created.Label())
	return cloneKey(created), nil
}

// GetOrCreate returns the existing key for the natural key or creates it.
// The boolean reports whether a new key was created.
func (s *service) GetOrCreate(ctx context.Context, input CreateKeyInput) (*TranslatableKey, bool, error) {
	record, err := s.build(input)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.repo.GetByNaturalKey(ctx, record.TenantID, record.Scope, record.Key)
	if err == nil {
		return cloneKey(existing), false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			existing, getErr := s.repo.GetByNaturalKey(ctx, record.TenantID, record.Scope, record.Key)
			if getErr != nil {
				return nil, false, getErr
			}
			return cloneKey(existing), false, nil
		}
		return nil, false, err
	}
	return cloneKey(created), true, nil
}

func (s *service) Get(ctx context.Context, tenantID string, id uuid.UUID) (*TranslatableKey, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("translatable key", id.String())
		}
		return nil, err
	}
	if record.TenantID != tenantID {
		return nil, domain.NotFound("translatable key", id.String())
	}
	return cloneKey(record), nil
}

func (s *service) GetMany(ctx context.Context, tenantID string, ids []uuid.UUID) ([]*TranslatableKey, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	return cloneKeySlice(records), nil
}

func (s *service) ListByScope(ctx context.Context, tenantID, scope string, fields []string) ([]*TranslatableKey, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, domain.ValidationError("scope", messageScopeRequired, scope)
	}
	records, err := s.repo.ListByScope(ctx, tenantID, ScopeFilter{Scope: scope, Fields: cleanFields(fields)})
	if err != nil {
		return nil, err
	}
	return cloneKeySlice(records), nil
}

// UpdatePromptTemplate replaces the only mutable part of a key.
func (s *service) UpdatePromptTemplate(ctx context.Context, tenantID string, id uuid.UUID, template map[string]any) (*TranslatableKey, error) {
	record, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	tpl, err := DecodePromptTemplate(template)
	if err != nil {
		return nil, err
	}
	record.PromptTemplate = tpl
	record.UpdatedAt = s.now().UTC()
	updated, err := s.repo.UpdatePromptTemplate(ctx, record)
	if err != nil {
		return nil, err
	}
	return cloneKey(updated), nil
}

// DecodePromptTemplate validates a raw prompt template document and decodes it.
// An empty document yields nil.
func DecodePromptTemplate(raw map[string]any) (*PromptTemplate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, domain.InvalidInput("prompt_template must be a JSON object")
	}
	// Normalise Go numeric types to their JSON decoding before validating.
	normalized := map[string]any{}
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, domain.InvalidInput("prompt_template must be a JSON object")
	}
	if err := validation.ValidatePromptTemplate(normalized); err != nil {
		return nil, err
	}
	tpl := &PromptTemplate{}
	if err := json.Unmarshal(encoded, tpl); err != nil {
		return nil, domain.InvalidInput("prompt_template must be a JSON object")
	}
	tpl.Tone = strings.TrimSpace(tpl.Tone)
	tpl.Instructions = strings.TrimSpace(tpl.Instructions)
	if tpl.IsZero() {
		return nil, nil
	}
	return tpl, nil
}

func (s *service) build(input CreateKeyInput) (*TranslatableKey, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	scope := strings.TrimSpace(input.Scope)
	if scope == "" || len(scope) > maxIdentifierLength {
		return nil, domain.ValidationError("scope", messageScopeRequired, input.Scope)
	}
	key := strings.TrimSpace(input.Key)
	if key == "" || len(key) > maxIdentifierLength {
		return nil, domain.ValidationError("key", messageKeyRequired, input.Key)
	}
	tpl, err := DecodePromptTemplate(input.PromptTemplate)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &TranslatableKey{
		ID:             identity.KeyUUID(tenantID, scope, key),
		Scope:          scope,
		Key:            key,
		TenantID:       tenantID,
		Checksum:       Checksum(scope, key),
		IsBlocking:     input.IsBlocking,
		PromptTemplate: tpl,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func keyExists(record *TranslatableKey) error {
	return goerrors.New(MessageKeyExists, goerrors.CategoryConflict).
		WithTextCode(TextCodeKeyExists).
		WithMetadata(map[string]any{
			"tenant_id": record.TenantID,
			"scope":     record.Scope,
			"key":       record.Key,
		})
}

func cleanFields(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
