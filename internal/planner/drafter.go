package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/jsonutil"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

// titleKeys are the object fields a draft item's title may be under.
var titleKeys = []string{"title", "task_name", "name", "task"}

// Drafter asks providers for a list of task titles.
type Drafter struct {
	runner stageRunner
}

// NewDrafter creates a Drafter over registry's providers.
func NewDrafter(registry *provider.Registry, gateway *provider.Gateway, opts ...Option) *Drafter {
	return &Drafter{runner: stageRunner{registry: registry, gateway: gateway, opts: newOptions(opts)}}
}

// Draft returns between one and the clamped maximum number of unique titles,
// along with the name of the provider that produced them. When every provider
// fails the error is a *StageError; a cancelled ctx returns ctx.Err().
func (d *Drafter) Draft(ctx context.Context, goal string, hint int) ([]TaskDraft, string, error) {
	cfg := d.runner.opts.config
	limit := cfg.maxTasks(hint)

	req := &provider.Request{
		SystemPrompt: buildDraftSystemPrompt(cfg.minTasks(hint), limit),
		Prompt:       buildDraftUserPrompt(goal),
		MaxTokens:    cfg.DraftMaxTokens,
		Temperature:  cfg.DraftTemperature,
	}

	return rotate(ctx, d.runner, StageDraft, req, func(content string) ([]TaskDraft, error) {
		return parseDrafts(content, limit)
	})
}

func parseDrafts(content string, limit int) ([]TaskDraft, error) {
	val, err := jsonutil.Extract(content, jsonutil.ShapeArray)
	if err != nil {
		return nil, err
	}
	items, _ := val.([]any)

	drafts := make([]TaskDraft, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		title := normalizeTitle(draftTitle(item))
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		drafts = append(drafts, TaskDraft{Title: title})
		if len(drafts) == limit {
			break
		}
	}

	if len(drafts) == 0 {
		return nil, errors.NewRepairFailedError(fmt.Errorf("reply contained no task titles"))
	}
	return drafts, nil
}

func draftTitle(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case json.Number:
		return ""
	case map[string]any:
		for _, key := range titleKeys {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// normalizeTitle trims whitespace, collapses inner runs of it, and drops list markers like "1." or "-".
func normalizeTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, prefix := range []string{"- ", "* ", "• "} {
		s = strings.TrimPrefix(s, prefix)
	}
	if i := strings.IndexAny(s, ".)"); i > 0 && i <= 3 && i+1 < len(s) && s[i+1] == ' ' && isDigits(s[:i]) {
		s = s[i+2:]
	}
	return strings.TrimSpace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
