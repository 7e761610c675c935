package embeddingscmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/vectorize"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const vectorizeScopesMessageType = "locsync.embeddings.vectorize_requested"

// VectorizeScopesCommand embeds every translation of the tenant and scopes
// that is still missing a vector.
type VectorizeScopesCommand struct {
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
	Inline   bool     `json:"sync"`
}

// Type implements command.Message.
func (VectorizeScopesCommand) Type() string { return vectorizeScopesMessageType }

// Validate rejects an empty scope list or blank entries.
func (m VectorizeScopesCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.TenantID) == "" {
		errs["tenant_id"] = validation.NewError("locsync.vectorize.tenant_required", "tenant_id is required")
	}
	if len(m.Scopes) == 0 {
		errs["scopes"] = validation.NewError("locsync.vectorize.scopes_required", vectorize.MessageScopesRequired)
	}
	for _, scope := range m.Scopes {
		if strings.TrimSpace(scope) == "" {
			errs["scopes"] = validation.NewError("locsync.vectorize.scopes_required", vectorize.MessageScopesRequired)
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Sweeper is the part of the vectorize sweeper the handler needs.
type Sweeper interface {
	Sweep(ctx context.Context, req vectorize.Request) (vectorize.Result, error)
	Enqueue(ctx context.Context, req vectorize.Request) (*interfaces.Task, error)
}

// Outcome reports what the handler did: either a sweep result or the queued task.
type Outcome struct {
	Result *vectorize.Result `json:"result,omitempty"`
	Task   *interfaces.Task   `json:"task,omitempty"`
}

var _ command.Commander[VectorizeScopesCommand] = (*VectorizeScopesHandler)(nil)

// VectorizeScopesHandler runs or queues embedding sweeps.
type VectorizeScopesHandler struct {
	inner *commands.Handler[VectorizeScopesCommand]
}

// NewVectorizeScopesHandler builds the handler. Queued requests fall back to
// an inline sweep when the gates report the queue as disabled.
func NewVectorizeScopesHandler(sweeper Sweeper, logger interfaces.Logger, gates FeatureGates, onOutcome func(Outcome), opts ...commands.HandlerOption[VectorizeScopesCommand]) *VectorizeScopesHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg VectorizeScopesCommand) error {
		req := vectorize.Request{TenantID: strings.TrimSpace(msg.TenantID), Scopes: msg.Scopes}
		fields := map[string]any{"tenant_id": req.TenantID, "scopes": req.Scopes}

		if !msg.Inline && gates.queueEnabled() {
			task, err := sweeper.Enqueue(ctx, req)
			if err != nil {
				return err
			}
			if onOutcome != nil {
				onOutcome(Outcome{Task: task})
			}
			fields["task_id"] = task.ID
			logging.WithFields(baseLogger, fields).Info("embeddings.command.vectorize.enqueued")
			return nil
		}

		result, err := sweeper.Sweep(ctx, req)
		if onOutcome != nil {
			onOutcome(Outcome{Result: &result})
		}
		if err != nil {
			return err
		}
		fields["vectorized"] = result.Vectorized
		fields["errors"] = result.Errors
		logging.WithFields(baseLogger, fields).Info("embeddings.command.vectorize.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[VectorizeScopesCommand]{
		commands.WithLogger[VectorizeScopesCommand](baseLogger),
		commands.WithOperation[VectorizeScopesCommand]("embeddings.vectorize"),
		commands.WithTimeout[VectorizeScopesCommand](0),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &VectorizeScopesHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[VectorizeScopesCommand].Execute.
func (h *VectorizeScopesHandler) Execute(ctx context.Context, msg VectorizeScopesCommand) error {
	return h.inner.Execute(ctx, msg)
}
