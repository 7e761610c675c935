// Package tenant carries the tenant identifier through contexts and validates
// its format.
package tenant

import (
	"context"
	"regexp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type ctxKey struct{}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// WithID stores the tenant identifier on the context.
func WithID(ctx context.Context, tenantID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(tenantID))
}

// FromContext returns the tenant identifier previously stored with WithID.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(ctxKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Resolve prefers the explicit identifier and falls back to the context.
func Resolve(ctx context.Context, explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	value, _ := FromContext(ctx)
	return value
}

// Valid reports whether the identifier has an accepted format.
func Valid(tenantID string) bool {
	return idPattern.MatchString(tenantID)
}

// ValidateID returns a validation error when the identifier is malformed.
func ValidateID(tenantID string) error {
	if Valid(strings.TrimSpace(tenantID)) {
		return nil
	}
	return goerrors.NewValidation("Invalid tenant_id format", goerrors.FieldError{
		Field:   "tenant_id",
		Message: "Invalid tenant_id format",
		Value:   tenantID,
	}).WithTextCode("VALIDATION_FAILED")
}
