package translationscmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-locsync/internal/commands"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/internal/translations"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const captureSourceMessageType = "locsync.translations.capture_source"

// CaptureSourceCommand stores human-authored source texts for the keys of a
// scope, creating the keys on first sight.
type CaptureSourceCommand struct {
	TenantID string            `json:"tenant_id"`
	Scope    string            `json:"scope"`
	Lang     string            `json:"lang"`
	Fields   map[string]string `json:"fields"`
	Reviewer string            `json:"reviewer,omitempty"`
}

// Type implements command.Message.
func (CaptureSourceCommand) Type() string { return captureSourceMessageType }

// Validate ensures the scope, language and at least one field are present.
func (m CaptureSourceCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.TenantID, validation.Required.Error("tenant_id is required")),
		validation.Field(&m.Scope, validation.Required.Error("scope is required")),
		validation.Field(&m.Lang,
			validation.Required.Error("lang is required"),
			validation.By(func(value any) error {
				lang, _ := value.(string)
				if textutil.NormalizeLocale(lang) == "" {
					return validation.NewError("locsync.capture.lang_invalid", "lang must be a valid locale code")
				}
				return nil
			}),
		),
		validation.Field(&m.Fields,
			validation.Required.Error("at least one field is required"),
			validation.By(func(value any) error {
				fields, _ := value.(map[string]string)
				for key := range fields {
					if strings.TrimSpace(key) == "" {
						return validation.NewError("locsync.capture.field_key_required", "field keys must be non-empty")
					}
				}
				return nil
			}),
		),
	)
}

var _ command.Commander[CaptureSourceCommand] = (*CaptureSourceHandler)(nil)

// CaptureSourceHandler records source texts through the translation service.
type CaptureSourceHandler struct {
	inner *commands.Handler[CaptureSourceCommand]
}

// NewCaptureSourceHandler builds the handler. onCaptured, when set,
// receives the capture result.
func NewCaptureSourceHandler(service translations.Service, logger interfaces.Logger, onCaptured func(*translations.CaptureResult), opts ...commands.HandlerOption[CaptureSourceCommand]) *CaptureSourceHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg CaptureSourceCommand) error {
		result, err := service.CaptureSource(ctx, translations.CaptureRequest{
			TenantID: strings.TrimSpace(msg.TenantID),
			Scope:    strings.TrimSpace(msg.Scope),
			Lang:     msg.Lang,
			Fields:   msg.Fields,
			Reviewer: msg.Reviewer,
		})
		if err != nil {
			return err
		}
		if onCaptured != nil {
			onCaptured(result)
		}
		logging.WithFields(baseLogger, map[string]any{
			"keys_created": result.KeysCreated,
			"created":      result.Created,
			"updated":      result.Updated,
			"unchanged":    result.Unchanged,
		}).Info("translations.command.capture.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[CaptureSourceCommand]{
		commands.WithLogger[CaptureSourceCommand](baseLogger),
		commands.WithOperation[CaptureSourceCommand]("translations.capture"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CaptureSourceHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CaptureSourceCommand].Execute.
func (h *CaptureSourceHandler) Execute(ctx context.Context, msg CaptureSourceCommand) error {
	return h.inner.Execute(ctx, msg)
}
