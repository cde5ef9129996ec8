package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhase(t *testing.T) {
	tests := map[string]Phase{
		"PLANNING":       PhasePlanning,
		"planning":       PhasePlanning,
		" Research ":     PhaseResearch,
		"discovery":      PhaseResearch,
		"Design":         PhaseDesign,
		"implementation": PhaseExecution,
		"Development":    PhaseExecution,
		"testing":        PhaseReview,
		"QA":             PhaseReview,
		"deployment":     PhaseLaunch,
		"Release":        PhaseLaunch,
		"maintenance":    PhaseMaintenance,
		"":               PhaseExecution,
		"brainstorm":     PhaseExecution,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePhase(in), "input %q", in)
	}
}

func TestParsePriority(t *testing.T) {
	tests := map[string]Priority{
		"HIGH":     PriorityHigh,
		"high":     PriorityHigh,
		" Low ":    PriorityLow,
		"medium":   PriorityMedium,
		"urgent":   PriorityMedium,
		"critical": PriorityMedium,
		"P0":       PriorityMedium,
		"":         PriorityMedium,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePriority(in), "input %q", in)
	}
}

func TestTaskSpecJSON(t *testing.T) {
	b, err := json.Marshal(TaskSpec{Title: "Deploy", Phase: PhaseLaunch, Priority: PriorityHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "Deploy",
		"description": "",
		"estimatedDuration": "",
		"dependencies": [],
		"phase": "LAUNCH",
		"priority": "HIGH"
	}`, string(b))

	b, err = json.Marshal(Plan{{Title: "A", Dependencies: []string{"B"}}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"dependencies":["B"]`)
}

func TestPlanTitles(t *testing.T) {
	assert.Equal(t, []string{"Define scope", "Execute core work", "Review and finalize", "Launch"}, FallbackPlan("x").Titles())
	assert.Empty(t, Plan(nil).Titles())
}
