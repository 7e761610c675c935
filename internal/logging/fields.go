package logging

import (
	"maps"
	"strings"

	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const (
	fieldTenant = "tenant_id"
	fieldJob    = "job_id"
	fieldLang   = "language"
)

// WithFields returns a child logger carrying fields when the logger
// implements interfaces.FieldsLogger. Other loggers are returned unchanged.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(maps.Clone(fields))
	}
	return logger
}

// WithJobContext tags logger with the tenant, job and target language of a
// translation run. Blank values are left out.
func WithJobContext(logger interfaces.Logger, tenantID, jobID, language string) interfaces.Logger {
	return WithFields(logger, jobFields(tenantID, jobID, language))
}

func jobFields(tenantID, jobID, language string) map[string]any {
	fields := make(map[string]any, 3)
	for key, value := range map[string]string{
		fieldTenant: tenantID,
		fieldJob:    jobID,
		fieldLang:   language,
	} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			fields[key] = trimmed
		}
	}
	return fields
}
