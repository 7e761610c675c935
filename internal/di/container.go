package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-locsync/internal/adapters/memory"
	"github.com/goliatone/go-locsync/internal/adapters/noop"
	embeddingscmd "github.com/goliatone/go-locsync/internal/commands/embeddings"
	jobscmd "github.com/goliatone/go-locsync/internal/commands/jobs"
	translationscmd "github.com/goliatone/go-locsync/internal/commands/translations"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/keys"
	"github.com/goliatone/go-locsync/internal/languages"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/logging/gologger"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/internal/providers"
	"github.com/goliatone/go-locsync/internal/retry"
	"github.com/goliatone/go-locsync/internal/runtimeconfig"
	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/internal/tm"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/internal/vectorize"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// CommandRegistry is the minimal registration contract used for command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// Container wires module dependencies. Repositories default to memory and
// switch to bun when a database is supplied.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	cache          interfaces.CacheProvider

	bunDB         *bun.DB
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	languageRepo    languages.LanguageRepository
	keyRepo         keys.KeyRepository
	translationRepo translations.TranslationRepository
	jobRepo         jobs.JobRepository
	scheduler       interfaces.Scheduler
	memory          tm.Cache

	primary  interfaces.TextGenerator
	fallback interfaces.TextGenerator
	embedder interfaces.Embedder

	audit jobs.AuditRecorder
	now   func() time.Time

	languageSvc    languages.Service
	keySvc         keys.Service
	translationSvc translations.Service
	orchestrator   *orchestrator.Orchestrator
	executor       *jobs.Executor
	worker         *jobs.Worker
	sweeper        *vectorize.Sweeper

	commandRegistry    CommandRegistry
	cronRegistrar      CronRegistrar
	cronConfig         command.HandlerConfig
	cronSweeps         []embeddingscmd.VectorizeScopesCommand
	jobsCron           CronRegistrar
	jobsCleanupOpts    []jobscmd.CleanupHandlerOption
	jobsProcessOpts    []jobscmd.ProcessHandlerOption
	translationHandles *translationscmd.HandlerSet
	jobHandles         *jobscmd.HandlerSet
	vectorizeHandler   *embeddingscmd.VectorizeScopesHandler
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB switches repositories, the scheduler and the SQL translation
// memory to the supplied database.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithLoggerProvider overrides the logger provider built from configuration.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithCache overrides the repository cache service.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithCacheProvider overrides the in-process cache used for language
// lookups and the memory translation memory.
func WithCacheProvider(cache interfaces.CacheProvider) Option {
	return func(c *Container) {
		c.cache = cache
	}
}

// WithScheduler overrides the task queue.
func WithScheduler(s interfaces.Scheduler) Option {
	return func(c *Container) {
		c.scheduler = s
	}
}

// WithTranslationMemory overrides the translation memory backend.
func WithTranslationMemory(cache tm.Cache) Option {
	return func(c *Container) {
		c.memory = cache
	}
}

// WithGenerators overrides the primary and fallback generators.
func WithGenerators(primary, fallback interfaces.TextGenerator) Option {
	return func(c *Container) {
		c.primary = primary
		c.fallback = fallback
	}
}

// WithEmbedder overrides the embedder.
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(c *Container) {
		c.embedder = embedder
	}
}

// WithAuditRecorder overrides the job audit recorder.
func WithAuditRecorder(recorder jobs.AuditRecorder) Option {
	return func(c *Container) {
		c.audit = recorder
	}
}

// WithClock overrides the time source handed to services.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCommandRegistry registers command handlers with reg during construction.
func WithCommandRegistry(reg CommandRegistry) Option {
	return func(c *Container) {
		c.commandRegistry = reg
	}
}

// WithVectorizeCron schedules periodic sweeps for each message.
func WithVectorizeCron(reg CronRegistrar, cfg command.HandlerConfig, msgs ...embeddingscmd.VectorizeScopesCommand) Option {
	return func(c *Container) {
		c.cronRegistrar = reg
		c.cronConfig = cfg
		c.cronSweeps = append(c.cronSweeps, msgs...)
	}
}

// WithJobsCron schedules audit cleanup and queue draining. Empty expressions
// keep the handler defaults.
func WithJobsCron(reg CronRegistrar, cleanupExpr, processExpr string) Option {
	return func(c *Container) {
		c.jobsCron = reg
		c.jobsCleanupOpts = append(c.jobsCleanupOpts, jobscmd.CleanupWithCronExpression(cleanupExpr))
		c.jobsProcessOpts = append(c.jobsProcessOpts, jobscmd.ProcessWithCronExpression(processExpr))
	}
}

// NewContainer creates a container with the provided configuration.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureRepositories()
	if err := c.configureProviders(); err != nil {
		return nil, err
	}
	if err := c.configureServices(); err != nil {
		return nil, err
	}
	if c.bunDB == nil {
		if err := c.SeedLanguages(context.Background()); err != nil {
			return nil, err
		}
	}
	if err := c.registerCommands(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "none":
		return nil
	case "gologger":
		provider, err := gologger.NewProvider(gologger.ConfigFrom(c.Config.Logging))
		if err != nil {
			return err
		}
		c.loggerProvider = provider
		return nil
	default:
		return fmt.Errorf("%w: %s", runtimeconfig.ErrLoggingProviderUnknown, c.Config.Logging.Provider)
	}
}

func (c *Container) configureCacheDefaults() {
	if c.cache == nil {
		c.cache = memory.NewCache(
			memory.WithClock(c.now),
			memory.WithCapacity(c.Config.Cache.Capacity),
			memory.WithTTL(c.Config.Cache.TTL),
		)
	}
	if c.bunDB == nil || c.cacheDisabled() {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if ttl := c.Config.Cache.TTL; ttl > 0 {
			cfg.TTL = ttl
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) cacheDisabled() bool {
	return strings.EqualFold(strings.TrimSpace(c.Config.Cache.Backend), "none")
}

func (c *Container) configureRepositories() {
	schedulerOpts := []scheduler.Option{
		scheduler.WithClock(c.now),
		scheduler.WithRetryDelay(c.Config.Jobs.QueueRetryDelay),
		scheduler.WithDefaultMaxAttempts(c.Config.Jobs.QueueMaxAttempts),
	}

	if c.bunDB != nil {
		c.languageRepo = languages.NewBunLanguageRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		c.keyRepo = keys.NewBunKeyRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		c.translationRepo = translations.NewBunTranslationRepository(c.bunDB)
		c.jobRepo = jobs.NewBunJobRepository(c.bunDB)
		if c.scheduler == nil {
			c.scheduler = scheduler.NewBun(c.bunDB, schedulerOpts...)
			c.logScheduler("bun")
		}
	} else {
		c.languageRepo = languages.NewMemoryRepository()
		c.keyRepo = keys.NewMemoryRepository()
		c.translationRepo = translations.NewMemoryRepository()
		c.jobRepo = jobs.NewMemoryRepository()
		if c.scheduler == nil {
			c.scheduler = scheduler.NewInMemory(schedulerOpts...)
			c.logScheduler("in-memory")
		}
	}

	if c.memory != nil {
		return
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Cache.Backend)) {
	case "none":
		c.memory = tm.Disabled()
	case "sql":
		if c.bunDB != nil {
			c.memory = tm.NewBunCache(c.bunDB, tm.WithClock(c.now), tm.WithLogger(logging.TranslationsLogger(c.loggerProvider)))
			return
		}
		fallthrough
	default:
		c.memory = tm.NewProviderCache(c.cache, logging.TranslationsLogger(c.loggerProvider))
	}
}

func (c *Container) logScheduler(provider string) {
	logging.SchedulerLogger(c.loggerProvider).Info("scheduler.configured",
		"provider", provider,
		"retry_delay", c.Config.Jobs.QueueRetryDelay.String(),
		"max_attempts", c.Config.Jobs.QueueMaxAttempts,
	)
}

func (c *Container) configureProviders() error {
	logger := logging.ProvidersLogger(c.loggerProvider)
	if c.primary == nil {
		primary, err := providers.NewGenerator(c.Config.Providers.Primary, logger)
		if err != nil {
			return fmt.Errorf("di: primary provider: %w", err)
		}
		c.primary = primary
		if c.fallback == nil {
			fallback, err := providers.NewGenerator(c.Config.Providers.Fallback, logger)
			if err != nil {
				return fmt.Errorf("di: fallback provider: %w", err)
			}
			c.fallback = fallback
		}
	}
	if c.embedder == nil && c.Config.Features.Embeddings {
		embedder, err := providers.NewEmbedder(c.Config.Providers.Embedding, c.Config.Embedding.Dimension)
		if err != nil {
			return fmt.Errorf("di: embedding provider: %w", err)
		}
		c.embedder = embedder
	}
	return nil
}

func (c *Container) configureServices() error {
	cfg := c.Config

	languageCache := c.cache
	if c.cacheDisabled() {
		languageCache = noop.Cache()
	}
	c.languageSvc = languages.NewService(c.languageRepo,
		languages.WithCache(languageCache),
		languages.WithConfig(languages.Config{
			DefaultLanguage: cfg.DefaultLanguage,
			ActiveLanguages: cfg.ActiveLanguages,
			CacheTTL:        time.Hour,
		}),
		languages.WithLogger(logging.LanguagesLogger(c.loggerProvider)),
		languages.WithNow(c.now),
	)

	c.keySvc = keys.NewService(c.keyRepo,
		keys.WithLogger(logging.KeysLogger(c.loggerProvider)),
		keys.WithNow(c.now),
	)

	translationOpts := []translations.ServiceOption{
		translations.WithConfig(translations.Config{
			CacheTTL: cfg.Cache.TTL,
			Retry: retry.Policy{
				MaxAttempts:     cfg.Retry.MaxAttempts,
				InitialInterval: cfg.Retry.InitialInterval,
				Multiplier:      cfg.Retry.Multiplier,
				MaxInterval:     cfg.Retry.MaxInterval,
				Jitter:          retry.DefaultPolicy().Jitter,
			},
			SyncEmbedding: cfg.Embedding.Sync,
			Dimension:     cfg.Embedding.Dimension,
		}),
		translations.WithCache(c.memory),
		translations.WithPrimary(c.primary),
		translations.WithKeys(c.keySvc),
		translations.WithLogger(logging.TranslationsLogger(c.loggerProvider)),
		translations.WithNow(c.now),
	}
	if c.fallback != nil {
		translationOpts = append(translationOpts, translations.WithFallback(c.fallback))
	}
	if c.embedder != nil {
		translationOpts = append(translationOpts, translations.WithEmbedder(c.embedder))
	}
	c.translationSvc = translations.NewService(c.translationRepo, translationOpts...)

	c.orchestrator = orchestrator.New(c.keySvc, c.translationSvc,
		orchestrator.WithLogger(logging.OrchestratorLogger(c.loggerProvider)),
	)

	jobsLogger := logging.JobsLogger(c.loggerProvider)
	if c.audit == nil {
		c.audit = jobs.NewLoggerAuditRecorder(jobsLogger)
	}
	executor, err := jobs.NewExecutor(c.jobRepo, c.orchestrator,
		jobs.WithConfig(jobs.Config{
			HardTimeout:      cfg.Jobs.HardTimeout,
			SoftTimeout:      cfg.Jobs.SoftTimeout,
			QueueMaxAttempts: cfg.Jobs.QueueMaxAttempts,
		}),
		jobs.WithScheduler(c.scheduler),
		jobs.WithAuditRecorder(c.audit),
		jobs.WithLogger(jobsLogger),
		jobs.WithClock(c.now),
	)
	if err != nil {
		return err
	}
	c.executor = executor

	sweeper, err := vectorize.New(c.translationRepo, c.embedder,
		vectorize.WithConfig(vectorize.Config{
			SyncEmbedding:    cfg.Embedding.Sync,
			Dimension:        cfg.Embedding.Dimension,
			BatchSize:        vectorize.DefaultConfig().BatchSize,
			QueueMaxAttempts: cfg.Jobs.QueueMaxAttempts,
		}),
		vectorize.WithScheduler(c.scheduler),
		vectorize.WithLogger(logging.VectorizeLogger(c.loggerProvider)),
		vectorize.WithClock(c.now),
	)
	if err != nil {
		return err
	}
	c.sweeper = sweeper

	workerOpts := []jobs.Option{
		jobs.WithExecutor(c.executor),
		jobs.WithWorkerLogger(logging.SchedulerLogger(c.loggerProvider)),
		jobs.WithWorkerClock(c.now),
		jobs.WithBatchSize(cfg.Jobs.BatchSize),
	}
	if c.embeddingsEnabled() {
		workerOpts = append(workerOpts, jobs.WithHandler(scheduler.TaskTypeEmbeddingsVectorize, c.sweeper.HandleTask))
	}
	c.worker = jobs.NewWorker(c.scheduler, workerOpts...)
	return nil
}

func (c *Container) embeddingsEnabled() bool {
	return c.embedder != nil
}

// SeedLanguages creates the configured active languages that the store does
// not know yet. The default language is flagged as such.
func (c *Container) SeedLanguages(ctx context.Context) error {
	existing, err := c.languageSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("di: list languages: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, lang := range existing {
		known[lang.Code] = struct{}{}
	}

	defaultCode := strings.ToLower(strings.TrimSpace(c.Config.DefaultLanguage))
	for i, raw := range c.Config.ActiveLanguages {
		code := strings.ToLower(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		if _, ok := known[code]; ok {
			continue
		}
		if _, err := c.languageSvc.Create(ctx, languages.CreateLanguageInput{
			Code:      code,
			Name:      languageName(code),
			IsDefault: code == defaultCode,
			Priority:  i,
		}); err != nil && !errors.Is(err, languages.ErrLanguageExists) {
			return fmt.Errorf("di: seed language %s: %w", code, err)
		}
		known[code] = struct{}{}
	}
	return nil
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

func (c *Container) registerCommands() error {
	provider := c.loggerProvider

	set, err := translationscmd.RegisterTranslationCommands(c.commandRegistry, c.executor, c.translationSvc, provider)
	if err != nil {
		return err
	}
	c.translationHandles = set

	jobSet, err := jobscmd.RegisterJobCommands(c.commandRegistry, c.audit, c.worker, provider, c.jobsCleanupOpts, c.jobsProcessOpts)
	if err != nil {
		return err
	}
	c.jobHandles = jobSet
	if err := jobscmd.RegisterJobsCron(jobscmd.CronRegistrar(c.jobsCron), jobSet); err != nil {
		return err
	}

	if !c.embeddingsEnabled() {
		return nil
	}
	handler, err := embeddingscmd.RegisterEmbeddingCommands(c.commandRegistry, c.sweeper, provider, embeddingscmd.FeatureGates{
		QueueEnabled: func() bool { return c.scheduler != nil },
	})
	if err != nil {
		return err
	}
	c.vectorizeHandler = handler

	for _, msg := range c.cronSweeps {
		if err := embeddingscmd.RegisterVectorizeCron(embeddingscmd.CronRegistrar(c.cronRegistrar), handler, c.cronConfig, msg); err != nil {
			return err
		}
	}
	return nil
}

// LoggerProvider exposes the configured logger provider, which may be nil.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// BunDB exposes the database, nil for memory storage.
func (c *Container) BunDB() *bun.DB {
	return c.bunDB
}

// Scheduler returns the task queue.
func (c *Container) Scheduler() interfaces.Scheduler {
	return c.scheduler
}

// LanguageService returns the configured language service.
func (c *Container) LanguageService() languages.Service {
	return c.languageSvc
}

// KeyService returns the configured key service.
func (c *Container) KeyService() keys.Service {
	return c.keySvc
}

// TranslationService returns the configured translation service.
func (c *Container) TranslationService() translations.Service {
	return c.translationSvc
}

// Orchestrator returns the batch orchestrator.
func (c *Container) Orchestrator() *orchestrator.Orchestrator {
	return c.orchestrator
}

// JobExecutor returns the job executor.
func (c *Container) JobExecutor() *jobs.Executor {
	return c.executor
}

// Worker returns the queue worker.
func (c *Container) Worker() *jobs.Worker {
	return c.worker
}

// Sweeper returns the vectorize sweeper.
func (c *Container) Sweeper() *vectorize.Sweeper {
	return c.sweeper
}

// Embedder returns the embedder, nil when embeddings are disabled.
func (c *Container) Embedder() interfaces.Embedder {
	return c.embedder
}

// TranslationCommands returns the registered translation handlers.
func (c *Container) TranslationCommands() *translationscmd.HandlerSet {
	return c.translationHandles
}

// JobCommands returns the audit and queue handlers.
func (c *Container) JobCommands() *jobscmd.HandlerSet {
	return c.jobHandles
}

// AuditRecorder returns the job audit recorder.
func (c *Container) AuditRecorder() jobs.AuditRecorder {
	return c.audit
}

// VectorizeCommand returns the vectorize handler, nil when embeddings are disabled.
func (c *Container) VectorizeCommand() *embeddingscmd.VectorizeScopesHandler {
	return c.vectorizeHandler
}
