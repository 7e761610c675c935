// Package orchestrator runs batch translation over a resolved set of keys
// and target languages.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/keys"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/tenant"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	MessageSelectorRequired  = "Either scope or item_ids must be provided"
	MessageSelectorConflict  = "Cannot specify both scope and item_ids"
	MessageTargetsRequired   = "At least one target language must be provided"
	MessageInvalidSourceLang = "Invalid source language"
	MessageSourceMissing     = "Source text missing"
	MessageKeyMissing        = "Translatable key not found"
	TextCodeSourceMissing    = "SOURCE_TEXT_NOT_FOUND"
	TextCodeBlockingKey      = "BLOCKING_KEY_FAILED"
)

var (
	ErrKeyServiceRequired         = errors.New("orchestrator: key service required")
	ErrTranslationServiceRequired = errors.New("orchestrator: translation service required")
)

// Request describes one batch. Inline marks a run the caller waits on; a
// translation timeout then stops the batch instead of being recorded per item.
type Request struct {
	TenantID           string      `json:"tenant_id"`
	ItemIDs            []uuid.UUID `json:"item_ids,omitempty"`
	Scope              string      `json:"scope,omitempty"`
	Fields             []string    `json:"fields,omitempty"`
	SourceLang         string      `json:"source_lang"`
	TargetLangs        []string    `json:"target_langs"`
	OnlyMissing        bool        `json:"only_missing"`
	IncludeSEO         bool        `json:"include_seo"`
	SkipIfTargetExists bool        `json:"skip_if_target_exists"`
	Inline             bool        `json:"-"`
	JobID              string      `json:"-"`
}

// Stats summarises a batch run.
type Stats struct {
	Processed       int            `json:"processed"`
	Skipped         int            `json:"skipped"`
	PerLang         map[string]int `json:"per_lang"`
	OriginBreakdown map[string]int `json:"origin_breakdown"`
	Errors          []string       `json:"errors"`
}

// NewStats returns zeroed stats with initialised maps.
func NewStats() Stats {
	return Stats{
		PerLang:         map[string]int{},
		OriginBreakdown: map[string]int{},
		Errors:          []string{},
	}
}

// Estimate is the dry-run answer.
type Estimate struct {
	Estimated int             `json:"estimated"`
	Details   EstimateDetails `json:"details"`
}

// EstimateDetails breaks the estimate down.
type EstimateDetails struct {
	Items       int      `json:"items"`
	TargetLangs []string `json:"target_langs"`
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the module logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator resolves keys and drives translate-then-store per target.
type Orchestrator struct {
	keys         keys.Service
	translations translations.Service
	logger       interfaces.Logger
}

// New constructs an orchestrator.
func New(keySvc keys.Service, translationSvc translations.Service, opts ...Option) *Orchestrator {
	if keySvc == nil {
		panic(ErrKeyServiceRequired)
	}
	if translationSvc == nil {
		panic(ErrTranslationServiceRequired)
	}
	o := &Orchestrator{keys: keySvc, translations: translationSvc, logger: logging.NoOp()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Normalize validates req and returns it with the tenant trimmed, locales
// normalized and the source language removed from the targets.
func Normalize(req Request) (Request, error) {
	req.TenantID = strings.TrimSpace(req.TenantID)
	if err := tenant.ValidateID(req.TenantID); err != nil {
		return req, err
	}
	req.Scope = strings.TrimSpace(req.Scope)
	hasScope := req.Scope != ""
	hasItems := len(req.ItemIDs) > 0
	switch {
	case !hasScope && !hasItems:
		return req, domain.ValidationError("scope", MessageSelectorRequired, nil)
	case hasScope && hasItems:
		return req, domain.ValidationError("scope", MessageSelectorConflict, req.Scope)
	}
	source := textutil.NormalizeLocale(req.SourceLang)
	if source == "" {
		return req, domain.ValidationError("source_lang", MessageInvalidSourceLang, req.SourceLang)
	}
	req.SourceLang = source

	targets := make([]string, 0, len(req.TargetLangs))
	for _, lang := range textutil.NormalizeLocales(req.TargetLangs) {
		if lang != source {
			targets = append(targets, lang)
		}
	}
	if len(targets) == 0 {
		return req, domain.ValidationError("target_langs", MessageTargetsRequired, req.TargetLangs)
	}
	req.TargetLangs = targets
	req.ItemIDs = dedupeIDs(req.ItemIDs)
	return req, nil
}

// Estimate resolves the keys and reports items × target languages without
// side effects.
func (o *Orchestrator) Estimate(ctx context.Context, req Request) (Estimate, error) {
	req, err := Normalize(req)
	if err != nil {
		return Estimate{}, err
	}
	resolved, _, err := o.resolve(ctx, req)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		Estimated: len(resolved) * len(req.TargetLangs),
		Details: EstimateDetails{
			Items:       len(resolved),
			TargetLangs: append([]string(nil), req.TargetLangs...),
		},
	}, nil
}

// Run executes the batch. Per-item failures are collected in Stats.Errors;
// validation errors, context expiry and blocking key failures abort the run
// and return the partial stats with the error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Stats, error) {
	stats := NewStats()
	req, err := Normalize(req)
	if err != nil {
		return stats, err
	}
	logger := logging.WithJobContext(o.logger, req.TenantID, req.JobID, "")

	resolved, missing, err := o.resolve(ctx, req)
	if err != nil {
		return stats, err
	}
	for _, id := range missing {
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", id, MessageKeyMissing))
	}
	logger.Info("batch.run.started", "items", len(resolved), "target_langs", req.TargetLangs)

	for _, key := range resolved {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		source, err := o.translations.Get(ctx, req.TenantID, key.ID, req.SourceLang)
		if err != nil {
			if !goerrors.IsNotFound(err) {
				if abort := o.record(ctx, &stats, req, key, req.SourceLang, err); abort != nil {
					return stats, abort
				}
				continue
			}
			for _, lang := range req.TargetLangs {
				if abort := o.record(ctx, &stats, req, key, lang, sourceMissing(req.SourceLang)); abort != nil {
					return stats, abort
				}
			}
			continue
		}
		for _, lang := range req.TargetLangs {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if abort := o.process(ctx, &stats, req, key, source, lang, logger); abort != nil {
				return stats, abort
			}
		}
	}

	logger.Info("batch.run.completed",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"errors", len(stats.Errors),
	)
	return stats, nil
}

func (o *Orchestrator) process(ctx context.Context, stats *Stats, req Request, key *keys.TranslatableKey, source *translations.Translation, lang string, logger interfaces.Logger) error {
	existing, err := o.translations.Get(ctx, req.TenantID, key.ID, lang)
	if err != nil && !goerrors.IsNotFound(err) {
		return o.record(ctx, stats, req, key, lang, err)
	}
	sourceChecksum := textutil.Checksum(source.Text)
	if existing != nil {
		if req.SkipIfTargetExists {
			stats.Skipped++
			return nil
		}
		if req.OnlyMissing && existing.SourceChecksum == sourceChecksum {
			stats.Skipped++
			return nil
		}
	}

	result, err := o.translations.Translate(ctx, translations.TranslateRequest{
		Key:        key,
		SourceText: source.Text,
		SourceLang: req.SourceLang,
		TargetLang: lang,
		TenantID:   req.TenantID,
	})
	if err != nil {
		return o.record(ctx, stats, req, key, lang, err)
	}
	stored, err := o.translations.Store(ctx, translations.StoreRequest{
		Key:            key,
		TargetLang:     lang,
		Text:           result.Text,
		SourceText:     source.Text,
		SourceChecksum: result.SourceChecksum,
		Origin:         result.Origin,
		TenantID:       req.TenantID,
		IncludeSEO:     req.IncludeSEO,
	})
	if err != nil {
		return o.record(ctx, stats, req, key, lang, err)
	}

	stats.Processed++
	stats.PerLang[lang]++
	stats.OriginBreakdown[string(result.Origin)]++
	logger.Debug("batch.item.stored",
		"key", key.Label(),
		"language", lang,
		"origin", result.Origin,
		"unchanged", stored.Unchanged,
	)
	return nil
}

// record appends a per-item error and reports whether the batch must stop.
func (o *Orchestrator) record(ctx context.Context, stats *Stats, req Request, key *keys.TranslatableKey, lang string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if domain.IsValidation(err) || goerrors.IsCategory(err, goerrors.CategoryAuthz) {
		return err
	}
	if req.Inline && domain.HasTextCode(err, domain.TextCodeTranslationTimeout) {
		return err
	}
	message := fmt.Sprintf("%s [%s]: %s", key.Label(), lang, domain.Message(err))
	stats.Errors = append(stats.Errors, message)
	o.logger.Warn("batch.item.failed", "tenant_id", key.TenantID, "key", key.Label(), "language", lang, "error", domain.Message(err))
	if key.IsBlocking {
		blocking := goerrors.New("Blocking key failed: "+message, goerrors.CategoryOperation).WithTextCode(TextCodeBlockingKey)
		blocking.Source = err
		return blocking
	}
	return nil
}

func (o *Orchestrator) resolve(ctx context.Context, req Request) ([]*keys.TranslatableKey, []uuid.UUID, error) {
	if req.Scope != "" {
		found, err := o.keys.ListByScope(ctx, req.TenantID, req.Scope, req.Fields)
		return found, nil, err
	}
	found, err := o.keys.GetMany(ctx, req.TenantID, req.ItemIDs)
	if err != nil {
		return nil, nil, err
	}
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, key := range found {
		present[key.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range req.ItemIDs {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

func sourceMissing(lang string) error {
	return goerrors.New(MessageSourceMissing, goerrors.CategoryNotFound).
		WithTextCode(TextCodeSourceMissing).
		WithMetadata(map[string]any{"source_lang": lang})
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
