package translationscmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/jobs"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
	"github.com/google/uuid"
)

const syncTranslationsMessageType = "locsync.translations.sync_requested"

// SyncTranslationsCommand requests a translation batch for a scope or an
// explicit list of keys.
type SyncTranslationsCommand struct {
	TenantID           string      `json:"tenant_id"`
	Scope              string      `json:"scope,omitempty"`
	ItemIDs            []uuid.UUID `json:"item_ids,omitempty"`
	Fields             []string    `json:"fields,omitempty"`
	SourceLang         string      `json:"source_lang"`
	TargetLangs        []string    `json:"target_langs"`
	OnlyMissing        bool        `json:"only_missing"`
	IncludeSEO         bool        `json:"include_seo"`
	SkipIfTargetExists bool        `json:"skip_if_target_exists"`
	Inline             bool        `json:"sync"`
	Name               string      `json:"name,omitempty"`
}

// Type implements command.Message.
func (SyncTranslationsCommand) Type() string { return syncTranslationsMessageType }

// Validate checks the selector and targets before reaching the executor.
func (m SyncTranslationsCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.TenantID) == "" {
		errs["tenant_id"] = validation.NewError("locsync.sync.tenant_required", "tenant_id is required")
	}
	hasScope := strings.TrimSpace(m.Scope) != ""
	switch {
	case !hasScope && len(m.ItemIDs) == 0:
		errs["scope"] = validation.NewError("locsync.sync.selector_required", orchestrator.MessageSelectorRequired)
	case hasScope && len(m.ItemIDs) > 0:
		errs["scope"] = validation.NewError("locsync.sync.selector_conflict", orchestrator.MessageSelectorConflict)
	}
	for _, id := range m.ItemIDs {
		if id == uuid.Nil {
			errs["item_ids"] = validation.NewError("locsync.sync.item_id_invalid", "item_ids must be valid UUIDs")
			break
		}
	}
	if len(m.TargetLangs) == 0 {
		errs["target_langs"] = validation.NewError("locsync.sync.targets_required", orchestrator.MessageTargetsRequired)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Request converts the command into an orchestrator request.
func (m SyncTranslationsCommand) Request() orchestrator.Request {
	return orchestrator.Request{
		TenantID:           strings.TrimSpace(m.TenantID),
		ItemIDs:            append([]uuid.UUID(nil), m.ItemIDs...),
		Scope:              strings.TrimSpace(m.Scope),
		Fields:             append([]string(nil), m.Fields...),
		SourceLang:         m.SourceLang,
		TargetLangs:        append([]string(nil), m.TargetLangs...),
		OnlyMissing:        m.OnlyMissing,
		IncludeSEO:         m.IncludeSEO,
		SkipIfTargetExists: m.SkipIfTargetExists,
	}
}

// JobSubmitter is the part of the job executor the sync handler needs.
type JobSubmitter interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*jobs.Handle, error)
}

var _ command.Commander[SyncTranslationsCommand] = (*SyncTranslationsHandler)(nil)

// SyncTranslationsHandler submits translation jobs through the shared command handler.
type SyncTranslationsHandler struct {
	inner *commands.Handler[SyncTranslationsCommand]
}

// NewSyncTranslationsHandler builds the handler. onSubmitted, when set,
// receives the job handle, including the final job for inline runs.
func NewSyncTranslationsHandler(submitter JobSubmitter, logger interfaces.Logger, onSubmitted func(*jobs.Handle), opts ...commands.HandlerOption[SyncTranslationsCommand]) *SyncTranslationsHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg SyncTranslationsCommand) error {
		mode := domain.SubmitQueued
		if msg.Inline {
			mode = domain.SubmitInline
		}
		handle, err := submitter.Submit(ctx, jobs.SubmitRequest{
			Request: msg.Request(),
			Name:    msg.Name,
			Mode:    mode,
		})
		if handle != nil {
			if onSubmitted != nil {
				onSubmitted(handle)
			}
			logging.WithFields(baseLogger, map[string]any{
				"job_id":  handle.JobID.String(),
				"task_id": handle.TaskID,
				"mode":    string(mode),
			}).Info("translations.command.sync.submitted")
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[SyncTranslationsCommand]{
		commands.WithLogger[SyncTranslationsCommand](baseLogger),
		commands.WithOperation[SyncTranslationsCommand]("translations.sync"),
		commands.WithTimeout[SyncTranslationsCommand](0),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SyncTranslationsHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[SyncTranslationsCommand].Execute.
func (h *SyncTranslationsHandler) Execute(ctx context.Context, msg SyncTranslationsCommand) error {
	return h.inner.Execute(ctx, msg)
}
