// Package vectorize fills missing translation embeddings for a tenant and a
// set of scopes.
package vectorize

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/internal/tenant"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/internal/validation"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const MessageScopesRequired = "Scopes must be non-empty strings"

var (
	ErrRepositoryRequired = errors.New("vectorize: translation repository required")
	ErrEmbedderRequired   = errors.New("vectorize: embedder required")
	ErrSchedulerRequired  = errors.New("vectorize: scheduler required for queued sweeps")
)

// Request selects the rows to embed. Scopes match exactly or as a
// "scope:" prefix.
type Request struct {
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
}

// Result counts the rows embedded and the rows that could not be.
type Result struct {
	Vectorized int `json:"vectorized"`
	Errors     int `json:"errors"`
}

type Config struct {
	SyncEmbedding    bool
	Dimension        int
	BatchSize        int
	QueueMaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		Dimension:        384,
		BatchSize:        32,
		QueueMaxAttempts: 3,
	}
}

type Option func(*Sweeper)

func WithConfig(cfg Config) Option {
	return func(s *Sweeper) {
		s.cfg = cfg
	}
}

func WithScheduler(queue interfaces.Scheduler) Option {
	return func(s *Sweeper) {
		s.scheduler = queue
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Sweeper embeds translations stored without a vector.
type Sweeper struct {
	repo      translations.TranslationRepository
	embedder  interfaces.Embedder
	scheduler interfaces.Scheduler
	logger    interfaces.Logger
	cfg       Config
	now       func() time.Time
}

// New builds a sweeper. The embedder may be nil when sync embedding is on.
func New(repo translations.TranslationRepository, embedder interfaces.Embedder, opts ...Option) (*Sweeper, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	s := &Sweeper{
		repo:     repo,
		embedder: embedder,
		logger:   logging.NoOp(),
		cfg:      DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.BatchSize <= 0 {
		s.cfg.BatchSize = DefaultConfig().BatchSize
	}
	return s, nil
}

// NormalizeRequest validates the tenant and trims and dedupes scopes.
func NormalizeRequest(req Request) (Request, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	if err := tenant.ValidateID(tenantID); err != nil {
		return Request{}, err
	}
	if len(req.Scopes) == 0 {
		return Request{}, domain.ValidationError("scopes", MessageScopesRequired, req.Scopes)
	}
	seen := make(map[string]struct{}, len(req.Scopes))
	scopes := make([]string, 0, len(req.Scopes))
	for _, raw := range req.Scopes {
		scope := strings.TrimSpace(raw)
		if scope == "" {
			return Request{}, domain.ValidationError("scopes", MessageScopesRequired, req.Scopes)
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		scopes = append(scopes, scope)
	}
	return Request{TenantID: tenantID, Scopes: scopes}, nil
}

// Sweep embeds every row of the tenant and scopes that has no vector yet.
// Transient provider failures stop the sweep with a retryable error; rows
// already written keep their vector so a re-run picks up the rest.
func (s *Sweeper) Sweep(ctx context.Context, req Request) (Result, error) {
	req, err := NormalizeRequest(req)
	if err != nil {
		return Result{}, err
	}
	logger := logging.WithJobContext(s.logger, req.TenantID, "", "")
	if s.cfg.SyncEmbedding {
		logger.Debug("vectorize.sweep.skipped", "reason", "sync_embedding")
		return Result{}, nil
	}
	if s.embedder == nil {
		return Result{}, ErrEmbedderRequired
	}

	rows, err := s.repo.List(ctx, req.TenantID, translations.ListFilter{
		Scopes:           req.Scopes,
		MissingEmbedding: true,
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info("vectorize.sweep.started", "scopes", req.Scopes, "rows", len(rows))

	var result Result
	for start := 0; start < len(rows); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(rows))
		if err := s.embedBatch(ctx, rows[start:end], &result, logger); err != nil {
			logger.Warn("vectorize.sweep.interrupted",
				"vectorized", result.Vectorized,
				"errors", result.Errors,
				"error", domain.Message(err),
			)
			return result, err
		}
	}
	logger.Info("vectorize.sweep.completed", "vectorized", result.Vectorized, "errors", result.Errors)
	return result, nil
}

func (s *Sweeper) embedBatch(ctx context.Context, rows []*translations.Translation, result *Result, logger interfaces.Logger) error {
	pending := make([]*translations.Translation, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Text) == "" {
			result.Errors++
			continue
		}
		pending = append(pending, row)
		texts = append(texts, row.Text)
	}
	if len(pending) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		if domain.IsRetryable(err) || domain.IsContextError(err) {
			return err
		}
		logger.Warn("vectorize.batch.rejected", "rows", len(pending), "error", domain.Message(err))
		result.Errors += len(pending)
		return nil
	}
	if len(vectors) != len(pending) {
		logger.Warn("vectorize.batch.mismatch", "rows", len(pending), "vectors", len(vectors))
		result.Errors += len(pending)
		return nil
	}

	for i, row := range pending {
		raw := vectors[i]
		if s.cfg.Dimension > 0 && len(raw) != s.cfg.Dimension {
			result.Errors++
			logger.Warn("vectorize.row.dimension", "translation_id", row.ID.String(), "dimension", len(raw))
			continue
		}
		normalized := translations.NormalizeVector(raw)
		if normalized == nil {
			result.Errors++
			logger.Warn("vectorize.row.zero_vector", "translation_id", row.ID.String())
			continue
		}
		if err := s.repo.UpdateEmbedding(ctx, row.ID, normalized); err != nil {
			return err
		}
		result.Vectorized++
	}
	return nil
}

// Enqueue dispatches a sweep as a queued task.
func (s *Sweeper) Enqueue(ctx context.Context, req Request) (*interfaces.Task, error) {
	req, err := NormalizeRequest(req)
	if err != nil {
		return nil, err
	}
	if s.scheduler == nil {
		return nil, ErrSchedulerRequired
	}
	return s.scheduler.Enqueue(ctx, interfaces.TaskSpec{
		Key:   scheduler.VectorizeTaskKey(req.TenantID, req.Scopes),
		Type:  scheduler.TaskTypeEmbeddingsVectorize,
		RunAt: s.now(),
		Payload: map[string]any{
			"tenant_id": req.TenantID,
			"scopes":    append([]string(nil), req.Scopes...),
		},
		MaxAttempts: s.cfg.QueueMaxAttempts,
	})
}

// HandleTask runs the sweep carried by a queued vectorize task.
func (s *Sweeper) HandleTask(ctx context.Context, task *interfaces.Task) error {
	req, err := requestFromPayload(task.Payload)
	if err != nil {
		return err
	}
	_, err = s.Sweep(ctx, req)
	return err
}

func requestFromPayload(payload map[string]any) (Request, error) {
	if err := validation.Check(validation.SchemaVectorizeTask, payload); err != nil {
		return Request{}, err
	}
	tenantID, _ := payload["tenant_id"].(string)
	var scopes []string
	switch raw := payload["scopes"].(type) {
	case []string:
		scopes = append(scopes, raw...)
	case []any:
		for _, item := range raw {
			scope, ok := item.(string)
			if !ok {
				return Request{}, domain.ValidationError("scopes", MessageScopesRequired, raw)
			}
			scopes = append(scopes, scope)
		}
	}
	return Request{TenantID: tenantID, Scopes: scopes}, nil
}
