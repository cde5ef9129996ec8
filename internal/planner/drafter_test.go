package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
	"github.com/felixgeelhaar/taskplanner/internal/provider/providertest"
)

func testGateway() *provider.Gateway {
	return provider.NewGateway(provider.WithGatewayLogger(log.Discard()))
}

func draftTitles(drafts []TaskDraft) []string {
	out := make([]string, len(drafts))
	for i, d := range drafts {
		out[i] = d.Title
	}
	return out
}

func TestParseDrafts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    []string
	}{
		{
			name:    "strings",
			content: `["Design mockups", "Build frontend"]`,
			limit:   8,
			want:    []string{"Design mockups", "Build frontend"},
		},
		{
			name:    "objects with assorted title keys",
			content: `[{"task_name": "Research"}, {"title": "Design"}, {"name": "Build"}, {"task": "Ship"}]`,
			limit:   8,
			want:    []string{"Research", "Design", "Build", "Ship"},
		},
		{
			name:    "wrapped in prose and a tasks key",
			content: "Here you go:\n```json\n{\"tasks\": [\"A\", \"B\", \"C\"]}\n```",
			limit:   8,
			want:    []string{"A", "B", "C"},
		},
		{
			name:    "trims, numbers, dedupes and drops empties",
			content: `["  1. Plan  the   launch ", "", "plan the launch", "- Write copy", 42, null, {"other": "x"}]`,
			limit:   8,
			want:    []string{"Plan the launch", "Write copy"},
		},
		{
			name:    "truncated to limit",
			content: `["a","b","c","d","e","f","g","h","i","j"]`,
			limit:   8,
			want:    []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		},
		{
			name:    "truncated reply",
			content: `["Design mockups", "Build frontend", "Build ba`,
			limit:   8,
			want:    []string{"Design mockups", "Build frontend"},
		},
		{
			name:    "truncated reply of objects",
			content: `[{"title": "Design mockups"}, {"title": "Build frontend"}, {"title": "Build backend"}, {"title": "Integrate and t`,
			limit:   8,
			want:    []string{"Design mockups", "Build frontend", "Build backend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := parseDrafts(tt.content, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, draftTitles(drafts))
		})
	}
}

func TestParseDraftsFailures(t *testing.T) {
	for _, content := range []string{
		"I'd be happy to help!",
		`[]`,
		`["", "   "]`,
		`[1, 2, 3]`,
	} {
		_, err := parseDrafts(content, 8)
		assert.ErrorIs(t, err, errors.ErrRepairFailed, content)
	}
}

func TestDraftRotation(t *testing.T) {
	bad := providertest.New("openai", providertest.Fail(provider.KindAuth))
	garbled := providertest.New("anthropic", providertest.Text("Sorry, I can't produce JSON today."))
	good := providertest.New("gemini", providertest.Text(`["Research", "Build", "Launch"]`))

	d := NewDrafter(provider.NewRegistry(bad, garbled, good), testGateway(), WithLogger(log.Discard()))

	drafts, name, err := d.Draft(context.Background(), "Open a bakery", 0)
	require.NoError(t, err)
	assert.Equal(t, "gemini", name)
	assert.Equal(t, []string{"Research", "Build", "Launch"}, draftTitles(drafts))

	assert.Equal(t, 1, bad.Calls())
	assert.Equal(t, 1, garbled.Calls())
	assert.Equal(t, 1, good.Calls())

	req := good.Requests()[0]
	assert.Contains(t, req.Prompt, "Open a bakery")
	assert.Contains(t, req.SystemPrompt, "5-8")
	assert.Equal(t, 400, req.MaxTokens)
	assert.InDelta(t, 0.4, req.Temperature, 1e-9)
}

func TestDraftKeepsEveryCompleteTitleOfTruncatedReply(t *testing.T) {
	cut := providertest.New("openai", providertest.Text(`[{"title": "Design mockups"}, {"title": "Build frontend"}, {"title": "Build backend"}, {"title": "Integrate and t`))

	d := NewDrafter(provider.NewRegistry(cut), testGateway(), WithLogger(log.Discard()))

	drafts, name, err := d.Draft(context.Background(), "Launch a website", 0)
	require.NoError(t, err)
	assert.Equal(t, "openai", name)
	assert.Equal(t, []string{"Design mockups", "Build frontend", "Build backend"}, draftTitles(drafts))
}

func TestDraftStopsAtFirstSuccess(t *testing.T) {
	first := providertest.New("openai", providertest.Text(`["A"]`))
	second := providertest.New("anthropic", providertest.Text(`["B"]`))

	d := NewDrafter(provider.NewRegistry(first, second), testGateway(), WithLogger(log.Discard()))
	_, name, err := d.Draft(context.Background(), "goal", 0)
	require.NoError(t, err)
	assert.Equal(t, "openai", name)
	assert.Zero(t, second.Calls())
}

func TestDraftHintClamps(t *testing.T) {
	stub := providertest.New("openai", providertest.Text(`["a","b","c","d","e","f","g","h"]`))
	d := NewDrafter(provider.NewRegistry(stub), testGateway(), WithLogger(log.Discard()))

	drafts, _, err := d.Draft(context.Background(), "goal", 6)
	require.NoError(t, err)
	assert.Len(t, drafts, 6)
	assert.Contains(t, stub.Requests()[0].SystemPrompt, "exactly 6")
}

func TestDraftAllProvidersFail(t *testing.T) {
	d := NewDrafter(provider.NewRegistry(
		providertest.New("openai", providertest.Fail(provider.KindTimeout)),
		providertest.New("anthropic", providertest.Fail(provider.KindRateLimited)),
		providertest.New("gemini", providertest.Text("no json")),
	), testGateway(), WithLogger(log.Discard()))

	_, _, err := d.Draft(context.Background(), "goal", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStageFailed)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDraft, stageErr.Stage)
	require.Len(t, stageErr.Attempts, 3)
	assert.True(t, provider.IsKind(stageErr.Attempts[0], provider.KindTimeout))
	assert.True(t, provider.IsKind(stageErr.Attempts[1], provider.KindRateLimited))
	assert.ErrorIs(t, stageErr.Attempts[2], errors.ErrRepairFailed)
	assert.ErrorIs(t, err, errors.ErrRepairFailed)
}

func TestDraftNoProviders(t *testing.T) {
	d := NewDrafter(provider.NewRegistry(), testGateway(), WithLogger(log.Discard()))
	_, _, err := d.Draft(context.Background(), "goal", 0)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Empty(t, stageErr.Attempts)
	assert.Contains(t, err.Error(), "no providers available")
}

func TestDraftCancelled(t *testing.T) {
	stub := providertest.New("openai", providertest.Text(`["A"]`))
	d := NewDrafter(provider.NewRegistry(stub), testGateway(), WithLogger(log.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := d.Draft(ctx, "goal", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrStageFailed)
	assert.Zero(t, stub.Calls())
}

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"  Build   it  ":  "Build it",
		"1. Research":     "Research",
		"12) Deploy":      "Deploy",
		"* Review":        "Review",
		"2024 roadmap":    "2024 roadmap",
		"v1.2 release":    "v1.2 release",
		"3.5 Launch prep": "3.5 Launch prep",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeTitle(in), in)
	}
}
