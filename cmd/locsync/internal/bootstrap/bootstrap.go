package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goliatone/go-locsync"
	"github.com/goliatone/go-locsync/internal/di"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// DefaultEnvPrefix namespaces the environment variables read by the CLI.
const DefaultEnvPrefix = "LOCSYNC_"

// Options captures configuration for CLI bootstraps.
type Options struct {
	EnvFile        string
	EnvPrefix      string
	LoggerProvider interfaces.LoggerProvider
	Configure      func(*locsync.Config)
}

// Resources wraps the module together with the resolved configuration.
type Resources struct {
	Module *locsync.Module
	Config locsync.Config
	Logger interfaces.Logger
}

// Close releases the module storage.
func (r *Resources) Close() error {
	if r == nil || r.Module == nil {
		return nil
	}
	return r.Module.Close()
}

// LoadEnv reads path into the process environment. A missing file is not an
// error; variables already set win.
func LoadEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ResolveConfig loads the env file and overlays the environment on the defaults.
func ResolveConfig(opts Options) (locsync.Config, error) {
	if err := LoadEnv(opts.EnvFile); err != nil {
		return locsync.Config{}, err
	}
	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	cfg, err := locsync.OverlayConfigEnv(locsync.DefaultConfig(), prefix)
	if err != nil {
		return locsync.Config{}, err
	}
	if opts.Configure != nil {
		opts.Configure(&cfg)
	}
	return cfg, nil
}

// BuildModule resolves configuration and opens the module with its storage.
func BuildModule(ctx context.Context, opts Options) (*Resources, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}

	diOpts := []di.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}

	module, err := locsync.Open(ctx, cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise locsync module: %w", err)
	}
	return &Resources{
		Module: module,
		Config: cfg,
		Logger: logging.ModuleLogger(module.Container().LoggerProvider(), "locsync.cli"),
	}, nil
}

// ParseUUIDs parses every value, rejecting the nil UUID.
func ParseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		id, err := uuid.Parse(trimmed)
		if err != nil || id == uuid.Nil {
			return nil, fmt.Errorf("invalid item id %q", trimmed)
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseFields turns key=value pairs into a map. Later pairs win.
func ParseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", pair)
		}
		fields[key] = value
	}
	return fields, nil
}
