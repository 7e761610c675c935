package jobscmd

import (
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

// HandlerSet groups the handlers produced by RegisterJobCommands.
type HandlerSet struct {
	Export  *ExportAuditHandler
	Cleanup *CleanupAuditHandler
	Process *ProcessQueueHandler
}

// RegisterJobCommands builds the audit and queue handlers and registers them
// with reg when it is non-nil.
func RegisterJobCommands(reg CommandRegistry, audit AuditCleaner, worker QueueWorker, provider interfaces.LoggerProvider, cleanupOpts []CleanupHandlerOption, processOpts []ProcessHandlerOption) (*HandlerSet, error) {
	if audit == nil {
		return nil, errors.New("job command registration: audit log is nil")
	}
	if worker == nil {
		return nil, errors.New("job command registration: worker is nil")
	}

	logger := commands.CommandLogger(provider, "jobs")
	set := &HandlerSet{
		Export:  NewExportAuditHandler(audit, logger, nil),
		Cleanup: NewCleanupAuditHandler(audit, logger, cleanupOpts...),
		Process: NewProcessQueueHandler(worker, logger, nil, processOpts...),
	}
	if reg == nil {
		return set, nil
	}
	for _, handler := range []any{set.Export, set.Cleanup, set.Process} {
		if err := reg.RegisterCommand(handler); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// RegisterJobsCron schedules audit cleanup and queue draining using each
// handler's cron options.
func RegisterJobsCron(reg CronRegistrar, set *HandlerSet) error {
	if reg == nil || set == nil {
		return nil
	}
	if set.Cleanup != nil {
		if err := reg(set.Cleanup.CronOptions(), set.Cleanup.CronHandler()); err != nil {
			return err
		}
	}
	if set.Process != nil {
		if err := reg(set.Process.CronOptions(), set.Process.CronHandler()); err != nil {
			return err
		}
	}
	return nil
}
