package jobscmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const processQueueMessageType = "locsync.jobs.process_queue"

// QueueWorker drains due tasks from the scheduler.
type QueueWorker interface {
	Process(ctx context.Context) (int, error)
}

// ProcessQueueCommand runs one pass over the due queue tasks. Rounds repeats
// the pass, stopping early once a pass finds nothing to do.
type ProcessQueueCommand struct {
	Rounds int `json:"rounds,omitempty"`
}

// Type implements command.Message.
func (ProcessQueueCommand) Type() string { return processQueueMessageType }

// Validate ensures the round count is not negative.
func (m ProcessQueueCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Rounds, validation.Min(0)),
	)
}

// ProcessHandlerOption customises the process handler.
type ProcessHandlerOption func(*ProcessQueueHandler)

// ProcessWithCronExpression overrides the cron expression used for queue draining.
func ProcessWithCronExpression(expression string) ProcessHandlerOption {
	return func(h *ProcessQueueHandler) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			h.cronConfig.Expression = trimmed
		}
	}
}

var _ command.Commander[ProcessQueueCommand] = (*ProcessQueueHandler)(nil)

// ProcessQueueHandler hands due tasks to the worker.
type ProcessQueueHandler struct {
	inner      *commands.Handler[ProcessQueueCommand]
	cronConfig command.HandlerConfig
}

// NewProcessQueueHandler wraps worker. onProcessed receives the total number
// of tasks handled by a command.
func NewProcessQueueHandler(worker QueueWorker, logger interfaces.Logger, onProcessed func(int), opts ...ProcessHandlerOption) *ProcessQueueHandler {
	baseLogger := commands.EnsureLogger(logger)
	h := &ProcessQueueHandler{
		cronConfig: command.HandlerConfig{Expression: "@every 1m"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	exec := func(ctx context.Context, msg ProcessQueueCommand) error {
		rounds := msg.Rounds
		if rounds <= 0 {
			rounds = 1
		}
		total := 0
		for i := 0; i < rounds; i++ {
			n, err := worker.Process(ctx)
			total += n
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
		}
		if onProcessed != nil {
			onProcessed(total)
		}
		logging.WithFields(baseLogger, map[string]any{
			"processed": total,
		}).Debug("jobs.command.process.completed")
		return nil
	}

	h.inner = commands.NewHandler(exec,
		commands.WithLogger[ProcessQueueCommand](baseLogger),
		commands.WithOperation[ProcessQueueCommand]("jobs.process"),
		commands.WithTimeout[ProcessQueueCommand](0),
	)
	return h
}

// Execute satisfies command.Commander[ProcessQueueCommand].
func (h *ProcessQueueHandler) Execute(ctx context.Context, msg ProcessQueueCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronHandler drains the queue once per tick.
func (h *ProcessQueueHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), ProcessQueueCommand{})
	}
}

// CronOptions returns the configured cron metadata.
func (h *ProcessQueueHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}
