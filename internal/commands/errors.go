package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation     = "COMMAND_VALIDATION_FAILED"
	TextCodeContextCancel  = "COMMAND_CONTEXT_CANCELED"
	TextCodeContextTimeout = "COMMAND_CONTEXT_TIMEOUT"
	TextCodeContextError   = "COMMAND_CONTEXT_ERROR"
	TextCodeExecuteFailed  = "COMMAND_EXECUTION_FAILED"
)

// stage is the point of Handler.Execute an error came from.
type stage int

const (
	stageValidate stage = iota
	stageContext
	stageExecute
)

// wrapError maps err onto a go-errors value for its stage. Errors that
// already carry a category pass through, so domain codes such as
// TRANSLATION_TIMEOUT reach the caller unchanged.
func wrapError(s stage, err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	category := goerrors.CategoryCommand
	code, message := TextCodeExecuteFailed, "command execution failed"
	switch {
	case s == stageValidate:
		category = goerrors.CategoryValidation
		code, message = TextCodeValidation, "command validation failed"
	case errors.Is(err, context.Canceled):
		code, message = TextCodeContextCancel, "command execution cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		code, message = TextCodeContextTimeout, "command execution deadline exceeded"
	case s == stageContext:
		code, message = TextCodeContextError, "command context error"
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}
