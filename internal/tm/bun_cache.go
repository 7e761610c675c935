package tm

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entry is a persisted translation memory row.
type Entry struct {
	bun.BaseModel `bun:"table:tm_entries,alias:tm"`

	CacheKey  string     `bun:"cache_key,pk"`
	Text      string     `bun:"text,notnull"`
	ExpiresAt *time.Time `bun:"expires_at,nullzero"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// BunCache stores translation memory in the tm_entries table so it is
// shared between processes.
type BunCache struct {
	db     *bun.DB
	now    func() time.Time
	logger interfaces.Logger
}

// BunCacheOption configures BunCache.
type BunCacheOption func(*BunCache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) BunCacheOption {
	return func(c *BunCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used to report backend failures.
func WithLogger(logger interfaces.Logger) BunCacheOption {
	return func(c *BunCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewBunCache constructs a SQL backed translation memory.
func NewBunCache(db *bun.DB, opts ...BunCacheOption) *BunCache {
	c := &BunCache{db: db, now: time.Now, logger: logging.NoOp()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *BunCache) Lookup(ctx context.Context, keyID uuid.UUID, sourceChecksum, lang, tenantID string) (string, bool) {
	entry := new(Entry)
	key := CacheKey(keyID, sourceChecksum, lang, tenantID)
	err := c.db.NewSelect().Model(entry).Where("?TableAlias.cache_key = ?", key).Limit(1).Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("tm.lookup.failed", "key", key, "error", err)
		}
		return "", false
	}
	if entry.ExpiresAt != nil && !c.now().UTC().Before(entry.ExpiresAt.UTC()) {
		return "", false
	}
	return entry.Text, entry.Text != ""
}

func (c *BunCache) Store(ctx context.Context, keyID uuid.UUID, sourceChecksum, lang, tenantID, text string, ttl time.Duration) {
	if text == "" {
		return
	}
	now := c.now().UTC()
	entry := &Entry{
		CacheKey:  CacheKey(keyID, sourceChecksum, lang, tenantID),
		Text:      text,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}
	_, err := c.db.NewInsert().Model(entry).
		On("CONFLICT (cache_key) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		c.logger.Warn("tm.store.failed", "key", entry.CacheKey, "error", err)
	}
}

// Purge deletes expired entries and returns how many were removed.
func (c *BunCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.NewDelete().Model((*Entry)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", c.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
