package exitcode

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"empty goal", errors.NewEmptyGoalError(), UsageError},
		{"bad request", errors.New(errors.ErrCodePlanBadRequest, "bad body"), UsageError},
		{"config invalid", errors.NewConfigInvalidError("planner.min_tasks must be at least 1"), ConfigError},
		{"config parse wrapped", fmt.Errorf("load: %w", errors.NewConfigParseError("x.yaml", stderrors.New("boom"))), ConfigError},
		{"provider auth", errors.NewProviderAuthError("openai"), ProviderError},
		{"cancelled", fmt.Errorf("plan: %w", context.Canceled), Interrupted},
		{"cobra unknown flag", stderrors.New("unknown flag: --bogus"), UsageError},
		{"cobra unknown command", stderrors.New(`unknown command "x" for "taskplanner"`), UsageError},
		{"anything else", stderrors.New("disk full"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineExitCode(tt.err))
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	for _, code := range []int{Success, GeneralError, UsageError, ConfigError, ProviderError, Interrupted} {
		assert.NotEqual(t, "Unknown error", GetExitCodeDescription(code), "code %d", code)
	}
	assert.Equal(t, "Unknown error", GetExitCodeDescription(42))
}
