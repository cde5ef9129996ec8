package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
	"github.com/felixgeelhaar/taskplanner/internal/provider/providertest"
)

func TestParseSpec(t *testing.T) {
	prior := []string{"Design mockups", "Build frontend"}

	spec, err := parseSpec(`{
		"description": "Implement the backend API",
		"estimatedDuration": "1 week",
		"dependencies": ["design MOCKUPS", "Deploy", "Design mockups", "Build backend"],
		"phase": "implementation",
		"priority": "urgent",
		"title": "ignored"
	}`, "Build backend", "Launch a website", prior)
	require.NoError(t, err)

	assert.Equal(t, TaskSpec{
		Title:             "Build backend",
		Description:       "Implement the backend API",
		EstimatedDuration: "1 week",
		Dependencies:      []string{"Design mockups"},
		Phase:             PhaseExecution,
		Priority:          PriorityMedium,
	}, spec)
}

func TestParseSpecDefaultsAndAliases(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		prior    []string
		duration string
		deps     []string
		phase    Phase
		priority Priority
	}{
		{
			name:     "duration alias and None dependencies",
			content:  `{"description": "d", "duration": "3 hours", "dependencies": "None", "phase": "Testing", "priority": "high"}`,
			prior:    []string{"A"},
			duration: "3 hours",
			deps:     []string{},
			phase:    PhaseReview,
			priority: PriorityHigh,
		},
		{
			name:     "numeric duration and comma separated dependencies",
			content:  `{"description": "d", "estimated_duration": 4, "dependencies": "A, b ,Unknown"}`,
			prior:    []string{"A", "B"},
			duration: "4 days",
			deps:     []string{"A", "B"},
			phase:    PhaseExecution,
			priority: PriorityMedium,
		},
		{
			name:     "single day",
			content:  `{"description": "d", "duration": 1}`,
			duration: "1 day",
			deps:     []string{},
			phase:    PhaseExecution,
			priority: PriorityMedium,
		},
		{
			name:     "missing fields",
			content:  `{}`,
			duration: DefaultDuration,
			deps:     []string{},
			phase:    PhaseExecution,
			priority: PriorityMedium,
		},
		{
			name:     "fenced one-element array",
			content:  "```json\n[{\"description\": \"d\", \"phase\": \"LAUNCH\", \"priority\": \"LOW\", \"dependencies\": [\"A\", 3]}]\n```",
			prior:    []string{"A"},
			duration: DefaultDuration,
			deps:     []string{"A"},
			phase:    PhaseLaunch,
			priority: PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := parseSpec(tt.content, "Task", "goal", tt.prior)
			require.NoError(t, err)
			assert.Equal(t, tt.duration, spec.EstimatedDuration)
			assert.Equal(t, tt.deps, spec.Dependencies)
			assert.Equal(t, tt.phase, spec.Phase)
			assert.Equal(t, tt.priority, spec.Priority)
		})
	}
}

func TestParseSpecTruncatedReply(t *testing.T) {
	content := `{"description": "Implement the UI", "meta": {"owner": "web"}, "dependencies": ["Design mockups"], "phase": "EXECU`

	spec, err := parseSpec(content, "Build frontend", "Launch a website", []string{"Design mockups"})
	require.NoError(t, err)

	assert.Equal(t, "Implement the UI", spec.Description)
	assert.Equal(t, []string{"Design mockups"}, spec.Dependencies)
	assert.Equal(t, PhaseExecution, spec.Phase)
	assert.Equal(t, DefaultDuration, spec.EstimatedDuration)
}

func TestParseSpecSynthesizesDescription(t *testing.T) {
	spec, err := parseSpec(`{"description": "   "}`, "Deploy", "Launch a website in 3 weeks", nil)
	require.NoError(t, err)
	assert.Equal(t, `Complete "Deploy" as part of the goal 'Launch a website in 3 weeks'.`, spec.Description)
}

func TestParseSpecRejectsNonObjects(t *testing.T) {
	_, err := parseSpec(`["just", "titles"]`, "Task", "goal", nil)
	assert.Error(t, err)
}

func TestFilterDependencies(t *testing.T) {
	prior := []string{"Research", "Design"}

	assert.Equal(t, []string{"Design", "Research"},
		filterDependencies([]string{" design", "RESEARCH", "Design", "Build"}, "Build", prior))
	assert.Equal(t, []string{}, filterDependencies(nil, "Build", prior))
	assert.Equal(t, []string{}, filterDependencies([]string{"Research"}, "research", prior))
}

func TestElaborateRotation(t *testing.T) {
	first := providertest.New("openai", providertest.Fail(provider.KindMalformed))
	second := providertest.New("anthropic", providertest.Text(`{"description": "Write the copy", "phase": "execution", "priority": "high", "dependencies": ["Research"]}`))

	e := NewElaborator(provider.NewRegistry(first, second), testGateway(), WithLogger(log.Discard()))

	spec, err := e.Elaborate(context.Background(), TaskDraft{Title: "Write copy"}, "Launch a blog", []string{"Research"})
	require.NoError(t, err)
	assert.Equal(t, "Write copy", spec.Title)
	assert.Equal(t, []string{"Research"}, spec.Dependencies)
	assert.Equal(t, PriorityHigh, spec.Priority)

	req := second.Requests()[0]
	assert.Equal(t, elaborateSystemPrompt, req.SystemPrompt)
	assert.Contains(t, req.Prompt, "Task: Write copy")
	assert.Contains(t, req.Prompt, "- Research")
	assert.Equal(t, 600, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
}

func TestElaborateExhausted(t *testing.T) {
	e := NewElaborator(provider.NewRegistry(
		providertest.New("openai", providertest.Fail(provider.KindUnavailable)),
	), testGateway(), WithLogger(log.Discard()))

	_, err := e.Elaborate(context.Background(), TaskDraft{Title: "X"}, "goal", nil)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageElaborate, stageErr.Stage)
}

func TestBuildElaborateUserPrompt(t *testing.T) {
	first := buildElaborateUserPrompt("goal", "Research", nil)
	assert.Contains(t, first, "first task")

	later := buildElaborateUserPrompt("goal", "Build", []string{"Research", "Design"})
	assert.Contains(t, later, "Earlier tasks:\n- Research\n- Design\n")
}
