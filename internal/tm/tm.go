// Package tm is the translation memory: a best-effort cache of machine
// translations keyed by key, source checksum, language and tenant.
package tm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache looks up and stores translation memory entries. Implementations
// degrade backend failures to misses and never return them to callers.
type Cache interface {
	Lookup(ctx context.Context, keyID uuid.UUID, sourceChecksum, lang, tenantID string) (string, bool)
	Store(ctx context.Context, keyID uuid.UUID, sourceChecksum, lang, tenantID, text string, ttl time.Duration)
}

// CacheKey renders tm:{keyID}:{sourceChecksum}:{lang}:{tenant}.
func CacheKey(keyID uuid.UUID, sourceChecksum, lang, tenantID string) string {
	return fmt.Sprintf("tm:%s:%s:%s:%s", keyID, sourceChecksum, lang, tenantID)
}

// Disabled returns a cache that never hits and drops every store.
func Disabled() Cache { return disabled{} }

type disabled struct{}

func (disabled) Lookup(context.Context, uuid.UUID, string, string, string) (string, bool) {
	return "", false
}

func (disabled) Store(context.Context, uuid.UUID, string, string, string, string, time.Duration) {}
