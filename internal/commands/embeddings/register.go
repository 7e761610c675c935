package embeddingscmd

import (
	"context"
	"errors"

	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	onOutcome   func(Outcome)
	handlerOpts []commands.HandlerOption[VectorizeScopesCommand]
}

// WithOutcomeSink receives the outcome of every vectorize command.
func WithOutcomeSink(fn func(Outcome)) Option {
	return func(cfg *options) {
		cfg.onOutcome = fn
	}
}

// WithHandlerOptions forwards options to the VectorizeScopesHandler constructor.
func WithHandlerOptions(opts ...commands.HandlerOption[VectorizeScopesCommand]) Option {
	return func(cfg *options) {
		cfg.handlerOpts = append(cfg.handlerOpts, opts...)
	}
}

// RegisterEmbeddingCommands builds the vectorize handler and registers it
// with reg when it is non-nil.
func RegisterEmbeddingCommands(reg CommandRegistry, sweeper Sweeper, provider interfaces.LoggerProvider, gates FeatureGates, opts ...Option) (*VectorizeScopesHandler, error) {
	if sweeper == nil {
		return nil, errors.New("embedding command registration: sweeper is nil")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	handler := NewVectorizeScopesHandler(sweeper, commands.CommandLogger(provider, "embeddings"), gates, cfg.onOutcome, cfg.handlerOpts...)
	if reg != nil {
		if err := reg.RegisterCommand(handler); err != nil {
			return nil, err
		}
	}
	return handler, nil
}

// RegisterVectorizeCron wires a periodic sweep for msg into a cron registrar.
// The handler is executed with a background context.
func RegisterVectorizeCron(reg CronRegistrar, handler *VectorizeScopesHandler, cfg command.HandlerConfig, msg VectorizeScopesCommand) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), msg)
	})
}
