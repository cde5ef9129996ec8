package exitcode

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage or an empty goal
	UsageError = 2

	// ConfigError indicates an unreadable or invalid configuration file
	ConfigError = 3

	// ProviderError indicates a provider failure that surfaced to the caller
	ProviderError = 4

	// Interrupted indicates the command was cancelled, usually by SIGINT
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps err onto an exit code, preferring error codes over message text.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	code := string(errors.CodeOf(err))
	switch {
	case code == string(errors.ErrCodePlanEmptyGoal), code == string(errors.ErrCodePlanBadRequest):
		return UsageError
	case strings.HasPrefix(code, "CONFIG-"):
		return ConfigError
	case strings.HasPrefix(code, "PROVIDER-"):
		return ProviderError
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "unknown command") || strings.Contains(errMsg, "unknown flag") ||
		strings.Contains(errMsg, "invalid argument") || strings.Contains(errMsg, "required flag") ||
		strings.Contains(errMsg, "unknown format") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or goal)"
	case ConfigError:
		return "Configuration error"
	case ProviderError:
		return "Provider error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
