package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidationFailed   = "VALIDATION_FAILED"
	TextCodeInvalidInput       = "INVALID_INPUT"
	TextCodeTenantMismatch     = "TENANT_MISMATCH"
	TextCodeProviderTransient  = "PROVIDER_TRANSIENT"
	TextCodeProviderRejected   = "PROVIDER_REJECTED"
	TextCodeTextRequired       = "TEXT_REQUIRED"
	TextCodeTranslationFailed  = "TRANSLATION_FAILED"
	TextCodeTranslationTimeout = "TRANSLATION_TIMEOUT"
	TextCodeJobRunning         = "JOB_RUNNING"
)

const (
	MessageTextRequired       = "Text is required"
	MessageTenantMismatch     = "Tenant ID must match"
	MessageTranslationFailed  = "Translation failed"
	MessageTranslationTimeout = "Translation timed out"
	MessageJobRunning         = "Job is already running"
	MessageInvalidInput       = "Invalid input"
)

// ValidationError builds a validation error for a single field.
func ValidationError(field, message string, value any) *goerrors.Error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	}).WithTextCode(TextCodeValidationFailed)
}

// InvalidInput reports malformed input that failed a boundary check.
func InvalidInput(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryValidation).WithTextCode(TextCodeInvalidInput)
}

func TenantMismatch() *goerrors.Error {
	return goerrors.New(MessageTenantMismatch, goerrors.CategoryAuthz).WithTextCode(TextCodeTenantMismatch)
}

func TextRequired() *goerrors.Error {
	return goerrors.New(MessageTextRequired, goerrors.CategoryBadInput).WithTextCode(TextCodeTextRequired)
}

// ProviderTransient wraps a provider failure that is expected to succeed on retry.
func ProviderTransient(source error, message string) *goerrors.RetryableError {
	if source == nil {
		return goerrors.NewRetryable(message, goerrors.CategoryExternal).WithTextCode(TextCodeProviderTransient)
	}
	return goerrors.WrapRetryable(source, goerrors.CategoryExternal, message).WithTextCode(TextCodeProviderTransient)
}

// ProviderRejected wraps a provider failure that will not succeed on retry.
func ProviderRejected(source error, message string) *goerrors.Error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryBadInput).WithTextCode(TextCodeProviderRejected)
	}
	return goerrors.Wrap(source, goerrors.CategoryBadInput, message).WithTextCode(TextCodeProviderRejected)
}

func TranslationFailed(source error) *goerrors.Error {
	if source == nil {
		return goerrors.New(MessageTranslationFailed, goerrors.CategoryExternal).WithTextCode(TextCodeTranslationFailed)
	}
	err := goerrors.New(MessageTranslationFailed, goerrors.CategoryExternal).WithTextCode(TextCodeTranslationFailed)
	err.Source = source
	return err
}

func TranslationTimeout(source error) *goerrors.Error {
	err := goerrors.New(MessageTranslationTimeout, goerrors.CategoryCommand).WithTextCode(TextCodeTranslationTimeout)
	err.Source = source
	return err
}

func JobRunning(jobID string) *goerrors.Error {
	return goerrors.New(MessageJobRunning, goerrors.CategoryConflict).
		WithTextCode(TextCodeJobRunning).
		WithMetadata(map[string]any{"job_id": jobID})
}

// NotFound reports a missing resource using a RESOURCE_NOT_FOUND text code.
func NotFound(resource, key string) *goerrors.Error {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(resource), " ", "_")) + "_NOT_FOUND"
	return goerrors.New(fmt.Sprintf("%s %q not found", resource, key), goerrors.CategoryNotFound).WithTextCode(code)
}

// IsRetryable reports whether any error in the chain is a retryable go-errors value.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable *goerrors.RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// AsRetryable marks err retryable while keeping its message, category and
// text code. Errors that are already retryable are returned as is.
func AsRetryable(err error) error {
	if err == nil || IsRetryable(err) {
		return err
	}
	category := goerrors.CategoryOperation
	textCode := ""
	var base *goerrors.Error
	if errors.As(err, &base) {
		category = base.Category
		textCode = base.TextCode
	}
	retryable := goerrors.NewRetryable(Message(err), category)
	retryable.Source = err
	if textCode != "" {
		retryable.TextCode = textCode
	}
	return retryable
}

// IsValidation reports a validation category anywhere in the chain.
func IsValidation(err error) bool {
	return goerrors.HasCategory(err, goerrors.CategoryValidation)
}

// IsContextError reports cancellation or deadline expiry.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// HasTextCode reports whether any go-errors value in the chain carries code.
func HasTextCode(err error, code string) bool {
	for current := err; current != nil; current = errors.Unwrap(current) {
		switch typed := current.(type) {
		case *goerrors.Error:
			if typed.TextCode == code {
				return true
			}
		case *goerrors.RetryableError:
			if typed.BaseError != nil && typed.BaseError.TextCode == code {
				return true
			}
		}
	}
	return false
}

// Message returns the human readable message of err without the category
// and text code prefix that go-errors adds.
func Message(err error) string {
	for current := err; current != nil; current = errors.Unwrap(current) {
		switch typed := current.(type) {
		case *goerrors.Error:
			if typed.Message != "" {
				return typed.Message
			}
		case *goerrors.RetryableError:
			if typed.BaseError != nil && typed.Message != "" {
				return typed.Message
			}
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
