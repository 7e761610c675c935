package jobscmd

import (
	"context"
	"strings"

	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const cleanupAuditMessageType = "locsync.jobs.audit_cleanup"

// AuditCleaner extends AuditLog with cleanup capabilities.
type AuditCleaner interface {
	AuditLog
	Clear(ctx context.Context) error
}

// CleanupAuditCommand removes recorded audit events. When DryRun is true only
// the event count is reported.
type CleanupAuditCommand struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// Type implements command.Message.
func (CleanupAuditCommand) Type() string { return cleanupAuditMessageType }

// Validate satisfies command.Message.
func (CleanupAuditCommand) Validate() error { return nil }

// CleanupHandlerOption customises the cleanup handler.
type CleanupHandlerOption func(*CleanupAuditHandler)

// CleanupWithCronExpression overrides the cron expression for the cleanup handler.
func CleanupWithCronExpression(expression string) CleanupHandlerOption {
	return func(h *CleanupAuditHandler) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			h.cronConfig.Expression = trimmed
		}
	}
}

// CleanupWithHandlerOptions forwards options to the wrapped command handler.
func CleanupWithHandlerOptions(opts ...commands.HandlerOption[CleanupAuditCommand]) CleanupHandlerOption {
	return func(h *CleanupAuditHandler) {
		h.handlerOpts = append(h.handlerOpts, opts...)
	}
}

var _ command.Commander[CleanupAuditCommand] = (*CleanupAuditHandler)(nil)

// CleanupAuditHandler clears audit logs via the supplied cleaner.
type CleanupAuditHandler struct {
	inner       *commands.Handler[CleanupAuditCommand]
	cronConfig  command.HandlerConfig
	handlerOpts []commands.HandlerOption[CleanupAuditCommand]
}

// NewCleanupAuditHandler constructs a handler that delegates to cleaner. The
// cron schedule defaults to daily.
func NewCleanupAuditHandler(cleaner AuditCleaner, logger interfaces.Logger, opts ...CleanupHandlerOption) *CleanupAuditHandler {
	baseLogger := commands.EnsureLogger(logger)
	h := &CleanupAuditHandler{
		cronConfig: command.HandlerConfig{Expression: "@daily"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	exec := func(ctx context.Context, msg CleanupAuditCommand) error {
		events, err := cleaner.List(ctx)
		if err != nil {
			return err
		}
		if msg.DryRun {
			logging.WithFields(baseLogger, map[string]any{
				"dry_run":        true,
				"existing_count": len(events),
			}).Info("jobs.command.audit.cleanup.dry_run")
			return nil
		}
		if err := cleaner.Clear(ctx); err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"removed": len(events),
		}).Info("jobs.command.audit.cleanup.removed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[CleanupAuditCommand]{
		commands.WithLogger[CleanupAuditCommand](baseLogger),
		commands.WithOperation[CleanupAuditCommand]("jobs.audit.cleanup"),
	}
	handlerOpts = append(handlerOpts, h.handlerOpts...)
	h.inner = commands.NewHandler(exec, handlerOpts...)
	return h
}

// Execute satisfies command.Commander[CleanupAuditCommand].
func (h *CleanupAuditHandler) Execute(ctx context.Context, msg CleanupAuditCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronHandler binds cleanup execution to a cron runner.
func (h *CleanupAuditHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), CleanupAuditCommand{})
	}
}

// CronOptions returns the configured cron metadata.
func (h *CleanupAuditHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the cleanup handler to CLI integrations.
func (h *CleanupAuditHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for audit cleanup.
func (h *CleanupAuditHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"jobs", "audit", "cleanup"},
		Group:       "jobs",
		Description: "Remove recorded job audit events; supports dry-run",
	}
}
