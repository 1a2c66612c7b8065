package main

import (
	"os"

	"github.com/loykin/sqlmigrate/internal/common"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler logs through the global logger and exits the process
type DefaultExitHandler struct{}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs err and exits with status 1
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	logger := common.GetLogger().WithComponent("main")
	logger.Error(msg, append([]any{"error", err}, keyvals...)...)
	h.Exit(1)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = &DefaultExitHandler{}
