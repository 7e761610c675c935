// Package noop holds adapters that satisfy locsync contracts without doing
// anything. The container uses them when a cache backend is set to "none".
package noop

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-locsync/pkg/interfaces"
)

// ErrCacheMiss is returned by every Get on the discard cache.
var ErrCacheMiss = errors.New("noop cache: miss")

type discardCache struct{}

var _ interfaces.CacheProvider = discardCache{}

// Cache returns a cache that stores nothing, so every lookup misses.
func Cache() interfaces.CacheProvider { return discardCache{} }

func (discardCache) Get(context.Context, string) (any, error)               { return nil, ErrCacheMiss }
func (discardCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (discardCache) Delete(context.Context, string) error                  { return nil }
func (discardCache) Clear(context.Context) error                           { return nil }
