// Package interfaces holds the contracts locsync expects from its host:
// loggers, caches, the task queue and model providers.
package interfaces

import (
	"context"
	"time"
)

// Logger is the leveled logger used across locsync. Arguments are key/value
// pairs. go-logger's glog.Logger satisfies it through the gologger adapter.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that can return a child with
// fields bound to every entry, such as tenant_id and job_id.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

// LoggerProvider resolves a logger per module name, e.g. locsync.jobs.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// CacheProvider backs the translation memory and the language lookups.
// Get reports a miss as an error.
type CacheProvider interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
