package locsync

import "github.com/goliatone/go-locsync/internal/runtimeconfig"

var (
	ErrSourceLocaleInvalid        = runtimeconfig.ErrSourceLocaleInvalid
	ErrDefaultLanguageInactive    = runtimeconfig.ErrDefaultLanguageInactive
	ErrTranslationFieldsRequired  = runtimeconfig.ErrTranslationFieldsRequired
	ErrRetryAttemptsInvalid       = runtimeconfig.ErrRetryAttemptsInvalid
	ErrRetryIntervalInvalid       = runtimeconfig.ErrRetryIntervalInvalid
	ErrPrimaryProviderRequired    = runtimeconfig.ErrPrimaryProviderRequired
	ErrProviderInvalid            = runtimeconfig.ErrProviderInvalid
	ErrEmbeddingDimensionInvalid  = runtimeconfig.ErrEmbeddingDimensionInvalid
	ErrEmbeddingProviderRequired  = runtimeconfig.ErrEmbeddingProviderRequired
	ErrCacheBackendUnknown        = runtimeconfig.ErrCacheBackendUnknown
	ErrJobTimeoutsInvalid         = runtimeconfig.ErrJobTimeoutsInvalid
	ErrQueueAttemptsInvalid       = runtimeconfig.ErrQueueAttemptsInvalid
	ErrStorageDriverUnknown       = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired         = runtimeconfig.ErrStorageDSNRequired
	ErrLoggingProviderRequired    = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown     = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid        = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid       = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config            = runtimeconfig.Config
	TranslationConfig = runtimeconfig.TranslationConfig
	RetryConfig       = runtimeconfig.RetryConfig
	ProvidersConfig   = runtimeconfig.ProvidersConfig
	ProviderConfig    = runtimeconfig.ProviderConfig
	EmbeddingConfig   = runtimeconfig.EmbeddingConfig
	CacheConfig       = runtimeconfig.CacheConfig
	JobsConfig        = runtimeconfig.JobsConfig
	StorageConfig     = runtimeconfig.StorageConfig
	Features          = runtimeconfig.Features
	LoggingConfig     = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// ConfigFromEnv overlays variables named <prefix><FIELD> on top of DefaultConfig.
func ConfigFromEnv(prefix string) (Config, error) {
	return runtimeconfig.FromEnv(prefix)
}

// OverlayConfigEnv applies variables named <prefix><FIELD> on top of cfg.
func OverlayConfigEnv(cfg Config, prefix string) (Config, error) {
	return runtimeconfig.Overlay(cfg, prefix, nil)
}
