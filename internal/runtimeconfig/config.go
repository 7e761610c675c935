package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

var ErrSourceLocaleInvalid = errors.New("locsync config: source locale is invalid")
var ErrDefaultLanguageInactive = errors.New("locsync config: default language must be listed in active languages")
var ErrTranslationFieldsRequired = errors.New("locsync config: at least one translation field is required")
var ErrRetryAttemptsInvalid = errors.New("locsync config: retry attempts must be at least one")
var ErrRetryIntervalInvalid = errors.New("locsync config: retry intervals must be positive")
var ErrPrimaryProviderRequired = errors.New("locsync config: primary provider is required")
var ErrProviderInvalid = errors.New("locsync config: provider configuration is invalid")
var ErrEmbeddingDimensionInvalid = errors.New("locsync config: embedding dimension must be positive")
var ErrEmbeddingProviderRequired = errors.New("locsync config: embedding provider is required when embeddings are enabled")
var ErrCacheBackendUnknown = errors.New("locsync config: cache backend is invalid")
var ErrJobTimeoutsInvalid = errors.New("locsync config: soft timeout must be shorter than hard timeout")
var ErrQueueAttemptsInvalid = errors.New("locsync config: queue max attempts must be at least one")
var ErrStorageDriverUnknown = errors.New("locsync config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("locsync config: storage dsn is required for sql drivers")
var ErrLoggingProviderRequired = errors.New("locsync config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("locsync config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("locsync config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("locsync config: logging format is invalid")

// Config aggregates the settings used to assemble the synchronization module.
type Config struct {
	SourceLocale    string            `env:"SOURCE_LOCALE"`
	DefaultLanguage string            `env:"DEFAULT_LANGUAGE"`
	ActiveLanguages []string          `env:"ACTIVE_LANGUAGES" envSeparator:","`
	Translation     TranslationConfig `envPrefix:"TRANSLATION_"`
	Retry           RetryConfig       `envPrefix:"RETRY_"`
	Providers       ProvidersConfig   `envPrefix:"PROVIDER_"`
	Embedding       EmbeddingConfig   `envPrefix:"EMBEDDING_"`
	Cache           CacheConfig       `envPrefix:"CACHE_"`
	Jobs            JobsConfig        `envPrefix:"JOBS_"`
	Storage         StorageConfig     `envPrefix:"STORAGE_"`
	Logging         LoggingConfig     `envPrefix:"LOG_"`
	Features        Features          `envPrefix:"FEATURE_"`
}

// TranslationConfig holds batch defaults applied when a request leaves them unset.
type TranslationConfig struct {
	Fields             []string `env:"FIELDS" envSeparator:","`
	OnlyMissing        bool     `env:"ONLY_MISSING"`
	IncludeSEO         bool     `env:"INCLUDE_SEO"`
	SkipIfTargetExists bool     `env:"SKIP_IF_TARGET_EXISTS"`
}

// RetryConfig controls the backoff applied to primary provider calls.
type RetryConfig struct {
	MaxAttempts     int           `env:"MAX_ATTEMPTS"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL"`
	Multiplier      float64       `env:"MULTIPLIER"`
	MaxInterval     time.Duration `env:"MAX_INTERVAL"`
}

// ProvidersConfig binds the generative and embedding backends.
type ProvidersConfig struct {
	Primary   ProviderConfig `envPrefix:"PRIMARY_"`
	Fallback  ProviderConfig `envPrefix:"FALLBACK_"`
	Embedding ProviderConfig `envPrefix:"EMBEDDING_"`
}

// ProviderConfig describes one provider binding. An empty Kind leaves the slot unbound.
type ProviderConfig struct {
	Kind        string        `env:"KIND" validate:"omitempty,oneof=openai ollama static"`
	Model       string        `env:"MODEL" validate:"required_unless=Kind static"`
	BaseURL     string        `env:"BASE_URL" validate:"omitempty,url"`
	APIKey      string        `env:"API_KEY" validate:"required_if=Kind openai"`
	Timeout     time.Duration `env:"TIMEOUT" validate:"gte=0"`
	Temperature float32       `env:"TEMPERATURE" validate:"gte=0,lte=2"`
	MaxTokens   int           `env:"MAX_TOKENS" validate:"gte=0"`
}

// Enabled reports whether the slot names a provider kind.
func (p ProviderConfig) Enabled() bool {
	return strings.TrimSpace(p.Kind) != ""
}

// EmbeddingConfig controls vector generation.
type EmbeddingConfig struct {
	Sync      bool `env:"SYNC"`
	Dimension int  `env:"DIMENSION"`
}

// CacheConfig selects the translation memory backend.
type CacheConfig struct {
	Backend  string        `env:"BACKEND"`
	TTL      time.Duration `env:"TTL"`
	Capacity int           `env:"CAPACITY"`
}

// JobsConfig captures execution ceilings and queue behaviour.
type JobsConfig struct {
	HardTimeout      time.Duration `env:"HARD_TIMEOUT"`
	SoftTimeout      time.Duration `env:"SOFT_TIMEOUT"`
	QueueMaxAttempts int           `env:"QUEUE_MAX_ATTEMPTS"`
	QueueRetryDelay  time.Duration `env:"QUEUE_RETRY_DELAY"`
	PollInterval     time.Duration `env:"POLL_INTERVAL"`
	BatchSize        int           `env:"BATCH_SIZE"`
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver string `env:"DRIVER"`
	DSN    string `env:"DSN"`
	Debug  bool   `env:"DEBUG"`
}

// Features toggles optional behaviour.
type Features struct {
	Logger     bool `env:"LOGGER"`
	Embeddings bool `env:"EMBEDDINGS"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `env:"PROVIDER"`
	Level     string   `env:"LEVEL"`
	Format    string   `env:"FORMAT"`
	AddSource bool     `env:"ADD_SOURCE"`
	Focus     []string `env:"FOCUS" envSeparator:","`
}

// DefaultConfig returns the defaults used by the CLI and the container.
func DefaultConfig() Config {
	return Config{
		SourceLocale:    "fr",
		DefaultLanguage: "fr",
		ActiveLanguages: []string{"fr", "en"},
		Translation: TranslationConfig{
			Fields:             []string{"label", "definition"},
			OnlyMissing:        true,
			IncludeSEO:         true,
			SkipIfTargetExists: false,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      2,
			MaxInterval:     10 * time.Second,
		},
		Providers: ProvidersConfig{
			Primary: ProviderConfig{
				Kind:    "static",
				Timeout: 30 * time.Second,
			},
		},
		Embedding: EmbeddingConfig{
			Sync:      false,
			Dimension: 384,
		},
		Cache: CacheConfig{
			Backend:  "memory",
			TTL:      24 * time.Hour,
			Capacity: 10000,
		},
		Jobs: JobsConfig{
			HardTimeout:      10 * time.Minute,
			SoftTimeout:      8 * time.Minute,
			QueueMaxAttempts: 3,
			QueueRetryDelay:  30 * time.Second,
			PollInterval:     5 * time.Second,
			BatchSize:        10,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "info",
			Format:   "console",
		},
	}
}

// FromEnv overlays variables named <prefix><FIELD> on top of DefaultConfig.
// Unset variables keep their defaults.
func FromEnv(prefix string) (Config, error) {
	return Overlay(DefaultConfig(), prefix, nil)
}

// Overlay applies environment variables to cfg. A nil environment reads the
// process environment.
func Overlay(cfg Config, prefix string, environment map[string]string) (Config, error) {
	opts := env.Options{Prefix: prefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("locsync config: parse environment: %w", err)
	}
	return cfg, nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if !isLocale(cfg.SourceLocale) {
		return fmt.Errorf("%w: %q", ErrSourceLocaleInvalid, cfg.SourceLocale)
	}
	if def := strings.TrimSpace(cfg.DefaultLanguage); def != "" && len(cfg.ActiveLanguages) > 0 && !containsFold(cfg.ActiveLanguages, def) {
		return fmt.Errorf("%w: %s", ErrDefaultLanguageInactive, def)
	}
	if len(cfg.Translation.Fields) == 0 {
		return ErrTranslationFieldsRequired
	}
	if cfg.Retry.MaxAttempts < 1 {
		return ErrRetryAttemptsInvalid
	}
	if cfg.Retry.InitialInterval <= 0 || cfg.Retry.MaxInterval <= 0 || cfg.Retry.Multiplier < 1 {
		return ErrRetryIntervalInvalid
	}
	if !cfg.Providers.Primary.Enabled() {
		return ErrPrimaryProviderRequired
	}
	slots := map[string]ProviderConfig{
		"primary":   cfg.Providers.Primary,
		"fallback":  cfg.Providers.Fallback,
		"embedding": cfg.Providers.Embedding,
	}
	for _, name := range []string{"primary", "fallback", "embedding"} {
		provider := slots[name]
		if !provider.Enabled() {
			continue
		}
		if err := structValidator.Struct(provider); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProviderInvalid, name, err)
		}
	}
	if cfg.Embedding.Dimension <= 0 {
		return ErrEmbeddingDimensionInvalid
	}
	if cfg.Features.Embeddings && !cfg.Providers.Embedding.Enabled() {
		return ErrEmbeddingProviderRequired
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "", "memory", "sql", "none":
	default:
		return fmt.Errorf("%w: %s", ErrCacheBackendUnknown, cfg.Cache.Backend)
	}
	if cfg.Jobs.HardTimeout > 0 && cfg.Jobs.SoftTimeout >= cfg.Jobs.HardTimeout {
		return ErrJobTimeoutsInvalid
	}
	if cfg.Jobs.QueueMaxAttempts < 1 {
		return ErrQueueAttemptsInvalid
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func isLocale(value string) bool {
	value = strings.TrimSpace(value)
	if len(value) != 2 && len(value) != 5 {
		return false
	}
	for i, r := range value {
		if i == 2 {
			if r != '-' {
				return false
			}
			continue
		}
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "gologger", "none":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
