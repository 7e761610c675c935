package locsync

import (
	"context"
	"errors"

	"github.com/goliatone/go-locsync/internal/commands"
	embeddingscmd "github.com/goliatone/go-locsync/internal/commands/embeddings"
	translationscmd "github.com/goliatone/go-locsync/internal/commands/translations"
	"github.com/goliatone/go-locsync/internal/di"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/keys"
	"github.com/goliatone/go-locsync/internal/languages"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/goliatone/go-locsync/pkg/storage"
	"github.com/uptrace/bun"
)

// LanguageService exports the languages service contract.
type LanguageService = languages.Service

// KeyService exports the translatable key service contract.
type KeyService = keys.Service

// TranslationService exports the translation service contract.
type TranslationService = translations.Service

// SyncCommand requests a translation batch for a tenant.
type SyncCommand = translationscmd.SyncTranslationsCommand

// CaptureCommand records source texts for a scope.
type CaptureCommand = translationscmd.CaptureSourceCommand

// VectorizeCommand requests an embedding sweep over scopes.
type VectorizeCommand = embeddingscmd.VectorizeScopesCommand

// Logger exports the structured logger contract.
type Logger = interfaces.Logger

// JobHandle identifies a submitted translation job.
type JobHandle = jobs.Handle

// Job is the persisted translation job record.
type Job = jobs.TranslationJob

// Estimate reports the work a sync request would schedule.
type Estimate = orchestrator.Estimate

// VectorizeOutcome carries either the inline sweep result or the queued task.
type VectorizeOutcome = embeddingscmd.Outcome

var ErrEmbeddingsDisabled = errors.New("locsync: embeddings feature is disabled")

// Module represents the top level translation sync runtime façade.
type Module struct {
	container *di.Container
	db        *bun.DB
	ownsDB    bool
}

// New constructs a module using the provided configuration and optional DI
// overrides. Storage is whatever the options supply, memory by default.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container, db: container.BunDB()}, nil
}

// Open connects the configured SQL storage before building the module. The
// memory driver behaves like New.
func Open(ctx context.Context, cfg Config, opts ...di.Option) (*Module, error) {
	if !storage.IsSQL(cfg.Storage.Driver) {
		return New(cfg, opts...)
	}
	db, err := storage.Open(ctx, storage.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Debug:  cfg.Storage.Debug,
	})
	if err != nil {
		return nil, err
	}
	module, err := New(cfg, append([]di.Option{di.WithBunDB(db)}, opts...)...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	module.ownsDB = true
	return module, nil
}

// Close releases the database connection opened by Open.
func (m *Module) Close() error {
	if m == nil || m.db == nil || !m.ownsDB {
		return nil
	}
	return m.db.Close()
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Migrate applies pending migrations and seeds the configured languages.
func (m *Module) Migrate(ctx context.Context) ([]string, error) {
	if m.db == nil {
		return nil, nil
	}
	applied, err := ApplyMigrations(ctx, m.db)
	if err != nil {
		return nil, err
	}
	if err := m.container.SeedLanguages(ctx); err != nil {
		return applied, err
	}
	return applied, nil
}

// Languages returns the configured language service.
func (m *Module) Languages() LanguageService {
	return m.container.LanguageService()
}

// Keys returns the configured key service.
func (m *Module) Keys() KeyService {
	return m.container.KeyService()
}

// Translations returns the configured translation service.
func (m *Module) Translations() TranslationService {
	return m.container.TranslationService()
}

// Jobs returns the job executor.
func (m *Module) Jobs() *jobs.Executor {
	return m.container.JobExecutor()
}

// Worker returns the queue worker.
func (m *Module) Worker() *jobs.Worker {
	return m.container.Worker()
}

// Sync validates cmd and submits a translation job. Jobs are queued unless
// cmd.Inline is set, in which case the handle carries the finished job.
func (m *Module) Sync(ctx context.Context, cmd SyncCommand) (*JobHandle, error) {
	var handle *JobHandle
	handler := translationscmd.NewSyncTranslationsHandler(
		m.container.JobExecutor(),
		commands.CommandLogger(m.container.LoggerProvider(), "translations"),
		func(h *jobs.Handle) { handle = h },
	)
	if err := handler.Execute(ctx, cmd); err != nil {
		return handle, err
	}
	return handle, nil
}

// Estimate counts the translations a sync request would schedule without
// creating a job.
func (m *Module) Estimate(ctx context.Context, cmd SyncCommand) (Estimate, error) {
	return m.container.Orchestrator().Estimate(ctx, cmd.Request())
}

// Capture records source texts for a scope, creating keys on demand.
func (m *Module) Capture(ctx context.Context, cmd CaptureCommand) (*translations.CaptureResult, error) {
	var result *translations.CaptureResult
	handler := translationscmd.NewCaptureSourceHandler(
		m.container.TranslationService(),
		commands.CommandLogger(m.container.LoggerProvider(), "translations"),
		func(r *translations.CaptureResult) { result = r },
	)
	if err := handler.Execute(ctx, cmd); err != nil {
		return nil, err
	}
	return result, nil
}

// Vectorize embeds stored translations that have no vector yet. The sweep is
// queued unless cmd.Inline is set.
func (m *Module) Vectorize(ctx context.Context, cmd VectorizeCommand) (VectorizeOutcome, error) {
	if m.container.Embedder() == nil {
		return VectorizeOutcome{}, ErrEmbeddingsDisabled
	}
	var outcome VectorizeOutcome
	handler := embeddingscmd.NewVectorizeScopesHandler(
		m.container.Sweeper(),
		commands.CommandLogger(m.container.LoggerProvider(), "embeddings"),
		embeddingscmd.FeatureGates{},
		func(o embeddingscmd.Outcome) { outcome = o },
	)
	if err := handler.Execute(ctx, cmd); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Logger returns the root module logger.
func (m *Module) Logger() Logger {
	return logging.ModuleLogger(m.container.LoggerProvider(), "locsync")
}
