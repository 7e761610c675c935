package commands

import (
	"strings"

	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const commandModuleRoot = "locsync.commands"

// CommandLogger returns the logger for a command family, named
// locsync.commands.<family> and tagged with component=command.
func CommandLogger(provider interfaces.LoggerProvider, family string) interfaces.Logger {
	name := strings.TrimSpace(family)
	if name == "" {
		name = "core"
	}
	return logging.WithFields(logging.ModuleLogger(provider, commandModuleRoot+"."+name), map[string]any{
		"component":      "command",
		"command_module": name,
	})
}

// EnsureLogger substitutes a no-op logger for nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
