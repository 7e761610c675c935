// Package fixtures records command and cron registrations so wiring can be
// asserted without a live dispatcher or cron runner.
package fixtures

import (
	"errors"
	"fmt"

	command "github.com/goliatone/go-command"
)

// RecordingRegistry keeps every handler passed to RegisterCommand, in order.
// A non-nil Err is returned instead of recording.
type RecordingRegistry struct {
	Handlers []any
	Err      error
}

func NewRecordingRegistry() *RecordingRegistry {
	return &RecordingRegistry{Handlers: []any{}}
}

func (r *RecordingRegistry) RegisterCommand(handler any) error {
	if r.Err != nil {
		return r.Err
	}
	r.Handlers = append(r.Handlers, handler)
	return nil
}

// HandlerAt returns the handler registered at index i as T.
func HandlerAt[T any](r *RecordingRegistry, i int) (T, bool) {
	var zero T
	if r == nil || i < 0 || i >= len(r.Handlers) {
		return zero, false
	}
	handler, ok := r.Handlers[i].(T)
	return handler, ok
}

// CronRegistration is one scheduled handler together with its config.
type CronRegistration struct {
	Config  command.HandlerConfig
	Handler func() error
}

// CronRecorder stands in for a cron registrar.
type CronRecorder struct {
	Registrations []CronRegistration
	err           error
}

func NewCronRecorder() *CronRecorder {
	return &CronRecorder{Registrations: []CronRegistration{}}
}

// Fail makes every later registration return err.
func (c *CronRecorder) Fail(err error) {
	c.err = err
}

// Registrar returns the function handed to RegisterXCron helpers. Handlers
// must be plain func() error values.
func (c *CronRecorder) Registrar() func(command.HandlerConfig, any) error {
	return func(cfg command.HandlerConfig, handler any) error {
		if c.err != nil {
			return c.err
		}
		fn, ok := handler.(func() error)
		if !ok {
			return fmt.Errorf("fixtures: cron handler must be func() error, got %T", handler)
		}
		c.Registrations = append(c.Registrations, CronRegistration{Config: cfg, Handler: fn})
		return nil
	}
}

// Expressions lists the registered cron expressions in registration order.
func (c *CronRecorder) Expressions() []string {
	out := make([]string, 0, len(c.Registrations))
	for _, registration := range c.Registrations {
		out = append(out, registration.Config.Expression)
	}
	return out
}

// RunAll fires every registered handler once and joins their errors.
func (c *CronRecorder) RunAll() error {
	var errs []error
	for _, registration := range c.Registrations {
		if err := registration.Handler(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", registration.Config.Expression, err))
		}
	}
	return errors.Join(errs...)
}
