package translationscmd

import (
	"errors"

	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the handlers produced by RegisterTranslationCommands.
type HandlerSet struct {
	Sync    *SyncTranslationsHandler
	Capture *CaptureSourceHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	onSubmitted func(*jobs.Handle)
	onCaptured  func(*translations.CaptureResult)
	syncOpts    []commands.HandlerOption[SyncTranslationsCommand]
	captureOpts []commands.HandlerOption[CaptureSourceCommand]
}

// WithSubmittedSink receives every job handle produced by the sync handler.
func WithSubmittedSink(fn func(*jobs.Handle)) Option {
	return func(cfg *options) {
		cfg.onSubmitted = fn
	}
}

// WithCapturedSink receives every capture result.
func WithCapturedSink(fn func(*translations.CaptureResult)) Option {
	return func(cfg *options) {
		cfg.onCaptured = fn
	}
}

// WithSyncHandlerOptions forwards options to the SyncTranslationsHandler constructor.
func WithSyncHandlerOptions(opts ...commands.HandlerOption[SyncTranslationsCommand]) Option {
	return func(cfg *options) {
		cfg.syncOpts = append(cfg.syncOpts, opts...)
	}
}

// WithCaptureHandlerOptions forwards options to the CaptureSourceHandler constructor.
func WithCaptureHandlerOptions(opts ...commands.HandlerOption[CaptureSourceCommand]) Option {
	return func(cfg *options) {
		cfg.captureOpts = append(cfg.captureOpts, opts...)
	}
}

// RegisterTranslationCommands builds the translation handlers and registers
// them with reg when it is non-nil.
func RegisterTranslationCommands(reg CommandRegistry, submitter JobSubmitter, service translations.Service, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if submitter == nil {
		return nil, errors.New("translation command registration: job submitter is nil")
	}
	if service == nil {
		return nil, errors.New("translation command registration: translation service is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "translations")
	set := &HandlerSet{
		Sync:    NewSyncTranslationsHandler(submitter, logger, cfg.onSubmitted, cfg.syncOpts...),
		Capture: NewCaptureSourceHandler(service, logger, cfg.onCaptured, cfg.captureOpts...),
	}

	if reg != nil {
		if err := reg.RegisterCommand(set.Sync); err != nil {
			return nil, err
		}
		if err := reg.RegisterCommand(set.Capture); err != nil {
			return nil, err
		}
	}
	return set, nil
}
