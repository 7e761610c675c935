package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const rootModule = "locsync"

// ModuleLogger returns the provider's logger for module, tagged with a
// "module" field. Names without the locsync prefix are placed under it, and
// a nil provider yields NoOp.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	module = strings.TrimSpace(module)
	switch {
	case module == "":
		module = rootModule
	case module != rootModule && !strings.HasPrefix(module, rootModule+"."):
		module = rootModule + "." + module
	}

	var logger interfaces.Logger = noopLogger{}
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

func LanguagesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "languages")
}

func KeysLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "keys")
}

func TranslationsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "translations")
}

// OrchestratorLogger is used by batch sync runs.
func OrchestratorLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "orchestrator")
}

func JobsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "jobs")
}

// SchedulerLogger is used by the queue and its workers.
func SchedulerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "scheduler")
}

func VectorizeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "vectorize")
}

// ProvidersLogger is shared by the LLM and embedding adapters.
func ProvidersLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, "providers")
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.FieldsLogger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger  { return n }
func (n noopLogger) WithContext(context.Context) interfaces.Logger { return n }
