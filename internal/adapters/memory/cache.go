// Package memory provides a process-local cache satisfying
// interfaces.CacheProvider on top of a sharded sturdyc client.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/viccon/sturdyc"
)

// ErrCacheMiss reports a missing or expired key.
var ErrCacheMiss = errors.New("memory cache: miss")

const (
	defaultCapacity           = 10000
	defaultShards             = 64
	defaultTTL                = 24 * time.Hour
	defaultEvictionPercentage = 10
)

type entry struct {
	value     any
	expiresAt time.Time
}

type settings struct {
	now      func() time.Time
	capacity int
	shards   int
	ttl      time.Duration
}

// CacheOption configures the cache.
type CacheOption func(*settings)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) CacheOption {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCapacity bounds the number of entries; the oldest entries of a full
// shard are evicted first.
func WithCapacity(capacity int) CacheOption {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithTTL sets the lifetime of entries stored without their own ttl. It is
// also the upper bound for any entry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// Cache keeps entries in a bounded sturdyc client. A ttl passed to Set
// shortens the cache wide ttl for that entry.
type Cache struct {
	now    func() time.Time
	client *sturdyc.Client[entry]
}

var _ interfaces.CacheProvider = (*Cache)(nil)

// NewCache constructs an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	cfg := settings{
		now:      time.Now,
		capacity: defaultCapacity,
		shards:   defaultShards,
		ttl:      defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.shards > cfg.capacity {
		cfg.shards = cfg.capacity
	}
	client := sturdyc.New[entry](cfg.capacity, cfg.shards, cfg.ttl, defaultEvictionPercentage,
		sturdyc.WithClock(clock{now: cfg.now}),
	)
	return &Cache{now: cfg.now, client: client}
}

func (c *Cache) Get(_ context.Context, key string) (any, error) {
	item, ok := c.client.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		c.client.Delete(key)
		return nil, ErrCacheMiss
	}
	return item.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	item := entry{value: value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.client.Set(key, item)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.client.Delete(key)
	return nil
}

func (c *Cache) Clear(context.Context) error {
	for _, key := range c.client.ScanKeys() {
		c.client.Delete(key)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included until
// the next eviction pass.
func (c *Cache) Len() int {
	return c.client.Size()
}

// clock adapts a time source to sturdyc. Tickers and timers stay on wall time
// so background evictions keep running under a fixed test clock.
type clock struct {
	now func() time.Time
}

func (c clock) Now() time.Time { return c.now() }

func (c clock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (c clock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

func (c clock) Since(t time.Time) time.Duration { return c.now().Sub(t) }
