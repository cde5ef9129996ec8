package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/taskplanner/internal/jsonutil"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

// DefaultDuration is used when a reply carries no usable duration.
const DefaultDuration = "2-3 days"

var durationKeys = []string{"estimatedDuration", "duration", "estimated_duration"}

// Elaborator asks providers to describe one drafted task.
type Elaborator struct {
	runner stageRunner
}

// NewElaborator creates an Elaborator over registry's providers.
func NewElaborator(registry *provider.Registry, gateway *provider.Gateway, opts ...Option) *Elaborator {
	return &Elaborator{runner: stageRunner{registry: registry, gateway: gateway, opts: newOptions(opts)}}
}

// Elaborate turns draft into a TaskSpec whose dependencies are a subset of
// priorTitles. When every provider fails the error is a *StageError.
func (e *Elaborator) Elaborate(ctx context.Context, draft TaskDraft, goal string, priorTitles []string) (TaskSpec, error) {
	cfg := e.runner.opts.config
	req := &provider.Request{
		SystemPrompt: elaborateSystemPrompt,
		Prompt:       buildElaborateUserPrompt(goal, draft.Title, priorTitles),
		MaxTokens:    cfg.ElaborateMaxTokens,
		Temperature:  cfg.ElaborateTemperature,
	}

	spec, _, err := rotate(ctx, e.runner, StageElaborate, req, func(content string) (TaskSpec, error) {
		return parseSpec(content, draft.Title, goal, priorTitles)
	})
	return spec, err
}

func parseSpec(content, title, goal string, priorTitles []string) (TaskSpec, error) {
	val, err := jsonutil.Extract(content, jsonutil.ShapeObject)
	if err != nil {
		return TaskSpec{}, err
	}
	obj, _ := val.(map[string]any)

	spec := TaskSpec{
		Title:             title,
		Description:       strings.TrimSpace(stringField(obj, "description")),
		EstimatedDuration: duration(obj),
		Dependencies:      filterDependencies(dependencyList(obj["dependencies"]), title, priorTitles),
		Phase:             ParsePhase(stringField(obj, "phase")),
		Priority:          ParsePriority(stringField(obj, "priority")),
	}
	if spec.Description == "" {
		spec.Description = synthesizeDescription(title, goal)
	}
	return spec, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func duration(obj map[string]any) string {
	for _, key := range durationKeys {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			if n, err := v.Float64(); err == nil && n > 0 {
				if n == 1 {
					return "1 day"
				}
				return fmt.Sprintf("%s days", v.String())
			}
		}
	}
	return DefaultDuration
}

// dependencyList accepts an array of strings or a comma separated string; "None" means none.
func dependencyList(v any) []string {
	switch deps := v.(type) {
	case []any:
		out := make([]string, 0, len(deps))
		for _, d := range deps {
			if s, ok := d.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(deps)
		if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "n/a") {
			return nil
		}
		return strings.Split(s, ",")
	}
	return nil
}

// filterDependencies keeps entries naming a prior title, spelled as that title,
// without duplicates or self references. The result is never nil.
func filterDependencies(deps []string, self string, priorTitles []string) []string {
	canonical := make(map[string]string, len(priorTitles))
	for _, t := range priorTitles {
		canonical[strings.ToLower(t)] = t
	}
	selfKey := strings.ToLower(self)

	out := []string{}
	seen := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		key := strings.ToLower(strings.TrimSpace(d))
		title, ok := canonical[key]
		if !ok || key == selfKey {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title)
	}
	return out
}

func synthesizeDescription(title, goal string) string {
	return fmt.Sprintf("Complete %q as part of the goal '%s'.", title, truncateRunes(goal, 80))
}

// truncateRunes shortens s to at most n runes, marking a cut with an ellipsis.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
