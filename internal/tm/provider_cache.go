package tm

import (
	"context"
	"time"

	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
)

// ProviderCache stores entries in an interfaces.CacheProvider.
type ProviderCache struct {
	cache  interfaces.CacheProvider
	logger interfaces.Logger
}

// NewProviderCache wraps a cache provider. A nil logger drops backend errors silently.
func NewProviderCache(cache interfaces.CacheProvider, logger interfaces.Logger) *ProviderCache {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &ProviderCache{cache: cache, logger: logger}
}

func (c *ProviderCache) Lookup(ctx context.Context, keyID uuid.UUID, sourceChecksum, lang, tenantID string) (string, bool) {
	if c == nil || c.cache == nil {
		return "", false
	}
	value, err := c.cache.Get(ctx, CacheKey(keyID, sourceChecksum, lang, tenantID))
	if err != nil || value == nil {
		return "", false
	}
	text, ok := value.(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

func (c *ProviderCache) Store(ctx context.Context, keyID uuid.UUID, sourceChecksum, lang, tenantID, text string, ttl time.Duration) {
	if c == nil || c.cache == nil || text == "" {
		return
	}
	key := CacheKey(keyID, sourceChecksum, lang, tenantID)
	if err := c.cache.Set(ctx, key, text, ttl); err != nil {
		c.logger.Warn("tm.store.failed", "key", key, "error", err)
	}
}
