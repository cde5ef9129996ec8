package planner

import (
	"fmt"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
)

// Config tunes plan size and the sampling parameters of both stages.
type Config struct {
	MinTasks int `yaml:"min_tasks"`
	MaxTasks int `yaml:"max_tasks"`

	DraftTemperature float64 `yaml:"draft_temperature"`
	DraftMaxTokens   int     `yaml:"draft_max_tokens"`

	ElaborateTemperature float64 `yaml:"elaborate_temperature"`
	ElaborateMaxTokens   int     `yaml:"elaborate_max_tokens"`
}

// DefaultConfig returns the 5-8 task target with the usual stage parameters.
func DefaultConfig() Config {
	return Config{
		MinTasks:             5,
		MaxTasks:             8,
		DraftTemperature:     0.4,
		DraftMaxTokens:       400,
		ElaborateTemperature: 0.7,
		ElaborateMaxTokens:   600,
	}
}

// Validate rejects inverted or out-of-range settings.
func (c Config) Validate() error {
	switch {
	case c.MinTasks < 1:
		return errors.NewConfigInvalidError("planner.min_tasks must be at least 1")
	case c.MaxTasks < c.MinTasks:
		return errors.NewConfigInvalidError(fmt.Sprintf("planner.max_tasks (%d) must not be below min_tasks (%d)", c.MaxTasks, c.MinTasks))
	case c.DraftTemperature < 0 || c.DraftTemperature > 2:
		return errors.NewConfigInvalidError("planner.draft_temperature must be within [0, 2]")
	case c.ElaborateTemperature < 0 || c.ElaborateTemperature > 2:
		return errors.NewConfigInvalidError("planner.elaborate_temperature must be within [0, 2]")
	case c.DraftMaxTokens < 0 || c.ElaborateMaxTokens < 0:
		return errors.NewConfigInvalidError("planner token limits must be non-negative")
	}
	return nil
}

// maxTasks returns the task cap for a request: the hint clamped into
// [MinTasks, MaxTasks], or MaxTasks without a hint.
func (c Config) maxTasks(hint int) int {
	switch {
	case hint <= 0:
		return c.MaxTasks
	case hint < c.MinTasks:
		return c.MinTasks
	case hint > c.MaxTasks:
		return c.MaxTasks
	default:
		return hint
	}
}

// minTasks returns the lower bound asked of the model for a request.
func (c Config) minTasks(hint int) int {
	if hint > 0 {
		return c.maxTasks(hint)
	}
	return c.MinTasks
}
