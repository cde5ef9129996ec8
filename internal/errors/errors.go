package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigRead    ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid ErrorCode = "CONFIG-002"
	ErrCodeConfigParse   ErrorCode = "CONFIG-003"

	// Provider errors (PROVIDER-001 to PROVIDER-099)
	ErrCodeProviderNotFound    ErrorCode = "PROVIDER-001"
	ErrCodeProviderConfig      ErrorCode = "PROVIDER-002"
	ErrCodeProviderAuth        ErrorCode = "PROVIDER-003"
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER-004"
	ErrCodeProviderRateLimit   ErrorCode = "PROVIDER-005"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER-006"
	ErrCodeProviderMalformed   ErrorCode = "PROVIDER-007"

	// Planning errors (PLAN-001 to PLAN-099)
	ErrCodePlanEmptyGoal   ErrorCode = "PLAN-001"
	ErrCodePlanStageFailed ErrorCode = "PLAN-002"
	ErrCodePlanCancelled   ErrorCode = "PLAN-003"
	ErrCodePlanBadRequest  ErrorCode = "PLAN-004"
	ErrCodePlanRateLimited ErrorCode = "PLAN-005"
	ErrCodePlanTimeout     ErrorCode = "PLAN-006"

	// Structured output errors (JSON-001 to JSON-099)
	ErrCodeJSONRepairFailed ErrorCode = "JSON-001"
)

// PlannerError represents an error with code, suggestions, and an optional cause
type PlannerError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *PlannerError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PlannerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PlannerError carrying the same code.
// This lets sentinel values such as ErrRepairFailed match wrapped instances.
func (e *PlannerError) Is(target error) bool {
	var other *PlannerError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code && other.Message == "" && other.Cause == nil
}

// New creates a new PlannerError
func New(code ErrorCode, message string) *PlannerError {
	return &PlannerError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PlannerError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PlannerError {
	return &PlannerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinel returns a bare PlannerError for the given code, suitable for errors.Is comparisons.
func Sentinel(code ErrorCode) *PlannerError {
	return &PlannerError{Code: code}
}

// WithSuggestion adds a suggestion to the error
func (e *PlannerError) WithSuggestion(suggestion string) *PlannerError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PlannerError) WithSuggestions(suggestions ...string) *PlannerError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithCause sets the underlying error
func (e *PlannerError) WithCause(cause error) *PlannerError {
	e.Cause = cause
	return e
}

// CodeOf returns the code of the first PlannerError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var pe *PlannerError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Common error constructors for frequently used errors

// NewEmptyGoalError creates the error returned when a planning request has no goal text
func NewEmptyGoalError() *PlannerError {
	return New(ErrCodePlanEmptyGoal, "goal must not be empty").
		WithSuggestion(`Describe what you want to achieve, e.g. "launch a product in 2 weeks"`)
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *PlannerError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Check taskplanner.yaml against the documented configuration keys")
}

// NewConfigParseError creates an error for a configuration file that cannot be decoded
func NewConfigParseError(path string, cause error) *PlannerError {
	return Wrap(ErrCodeConfigParse, fmt.Sprintf("failed to parse configuration file: %s", path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion("Ensure the file is valid YAML")
}

// NewProviderAuthError creates a provider authentication error
func NewProviderAuthError(provider string) *PlannerError {
	return New(ErrCodeProviderAuth, fmt.Sprintf("authentication failed for provider: %s", provider)).
		WithSuggestion(fmt.Sprintf("Set the %s_API_KEY environment variable", strings.ToUpper(provider))).
		WithSuggestion("Check if your API key is valid and not expired")
}

// NewProviderRateLimitError creates a rate limit error
func NewProviderRateLimitError(provider string) *PlannerError {
	return New(ErrCodeProviderRateLimit, fmt.Sprintf("rate limit exceeded for provider: %s", provider)).
		WithSuggestion("Wait before retrying the request").
		WithSuggestion("Configure an additional provider so requests can fall back")
}

// NewPlanRateLimitedError creates the error returned when the server turns a plan request away
func NewPlanRateLimitedError() *PlannerError {
	return New(ErrCodePlanRateLimited, "too many plan requests").
		WithSuggestion("Retry after the delay given in the Retry-After header")
}

// NewPlanTimeoutError creates the error returned when a plan does not finish within its deadline
func NewPlanTimeoutError(limit time.Duration) *PlannerError {
	return New(ErrCodePlanTimeout, fmt.Sprintf("plan did not finish within %s", limit)).
		WithSuggestion("Retry with a smaller desiredTaskCountHint").
		WithSuggestion("Raise server.plan_timeout together with server.write_timeout")
}

// NewRepairFailedError creates the error returned when no JSON value can be recovered from model output
func NewRepairFailedError(cause error) *PlannerError {
	return Wrap(ErrCodeJSONRepairFailed, "no JSON value could be recovered from model output", cause)
}

// ErrRepairFailed matches any JSON-001 error via errors.Is.
var ErrRepairFailed = Sentinel(ErrCodeJSONRepairFailed)

// ErrEmptyGoal matches any PLAN-001 error via errors.Is.
var ErrEmptyGoal = Sentinel(ErrCodePlanEmptyGoal)
