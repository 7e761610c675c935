package jobscmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const exportAuditMessageType = "locsync.jobs.audit_export"

// AuditLog exposes read operations for recorded job audit events.
type AuditLog interface {
	List(ctx context.Context) ([]jobs.AuditEvent, error)
}

// ExportAuditCommand retrieves recorded job audit events, optionally narrowed
// to a tenant or a single job.
type ExportAuditCommand struct {
	TenantID   string `json:"tenant_id,omitempty"`
	JobID      string `json:"job_id,omitempty"`
	MaxRecords *int   `json:"max_records,omitempty"`
}

// Type implements command.Message.
func (ExportAuditCommand) Type() string { return exportAuditMessageType }

// Validate ensures the command payload is well-formed.
func (m ExportAuditCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MaxRecords, validation.By(func(any) error {
			if m.MaxRecords != nil && *m.MaxRecords < 0 {
				return validation.NewError("locsync.jobs.audit.max_records_invalid", "max_records must be zero or positive")
			}
			return nil
		})),
	)
}

func (m ExportAuditCommand) matches(event jobs.AuditEvent) bool {
	if tenant := strings.TrimSpace(m.TenantID); tenant != "" && event.TenantID != tenant {
		return false
	}
	if job := strings.TrimSpace(m.JobID); job != "" && event.JobID != job {
		return false
	}
	return true
}

var _ command.Commander[ExportAuditCommand] = (*ExportAuditHandler)(nil)

// ExportAuditHandler logs matching audit events up to the requested limit and
// hands them to the optional sink.
type ExportAuditHandler struct {
	inner *commands.Handler[ExportAuditCommand]
}

// NewExportAuditHandler constructs a handler reading from log.
func NewExportAuditHandler(log AuditLog, logger interfaces.Logger, onExported func([]jobs.AuditEvent), opts ...commands.HandlerOption[ExportAuditCommand]) *ExportAuditHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg ExportAuditCommand) error {
		events, err := log.List(ctx)
		if err != nil {
			return err
		}

		limit := -1
		if msg.MaxRecords != nil {
			limit = *msg.MaxRecords
		}

		exported := make([]jobs.AuditEvent, 0, len(events))
		for _, event := range events {
			if limit >= 0 && len(exported) >= limit {
				break
			}
			if !msg.matches(event) {
				continue
			}
			exported = append(exported, event)
			logging.WithFields(baseLogger, map[string]any{
				"job_id":      event.JobID,
				"tenant_id":   event.TenantID,
				"action":      event.Action,
				"from":        event.From,
				"to":          event.To,
				"occurred_at": event.OccurredAt,
				"metadata":    event.Metadata,
			}).Info("jobs.command.audit.event")
		}

		if onExported != nil {
			onExported(exported)
		}
		logging.WithFields(baseLogger, map[string]any{
			"count": len(exported),
			"total": len(events),
		}).Debug("jobs.command.audit.exported")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ExportAuditCommand]{
		commands.WithLogger[ExportAuditCommand](baseLogger),
		commands.WithOperation[ExportAuditCommand]("jobs.audit.export"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ExportAuditHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ExportAuditCommand].
func (h *ExportAuditHandler) Execute(ctx context.Context, msg ExportAuditCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the export handler to CLI integrations.
func (h *ExportAuditHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for audit export.
func (h *ExportAuditHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"jobs", "audit", "export"},
		Group:       "jobs",
		Description: "Print recorded job state changes",
	}
}
