package planner

import (
	"encoding/json"
	"strings"
)

// Phase is the lifecycle phase a task belongs to.
type Phase string

const (
	PhasePlanning    Phase = "PLANNING"
	PhaseResearch    Phase = "RESEARCH"
	PhaseDesign      Phase = "DESIGN"
	PhaseExecution   Phase = "EXECUTION"
	PhaseReview      Phase = "REVIEW"
	PhaseLaunch      Phase = "LAUNCH"
	PhaseMaintenance Phase = "MAINTENANCE"
)

// DefaultPhase is used for missing or unrecognised phase values.
const DefaultPhase = PhaseExecution

var phaseAliases = map[string]Phase{
	"planning":       PhasePlanning,
	"research":       PhaseResearch,
	"analysis":       PhaseResearch,
	"discovery":      PhaseResearch,
	"design":         PhaseDesign,
	"execution":      PhaseExecution,
	"implementation": PhaseExecution,
	"development":    PhaseExecution,
	"build":          PhaseExecution,
	"review":         PhaseReview,
	"testing":        PhaseReview,
	"test":           PhaseReview,
	"qa":             PhaseReview,
	"validation":     PhaseReview,
	"launch":         PhaseLaunch,
	"deployment":     PhaseLaunch,
	"release":        PhaseLaunch,
	"maintenance":    PhaseMaintenance,
}

// ParsePhase maps s case-insensitively onto a Phase, falling back to DefaultPhase.
func ParsePhase(s string) Phase {
	if p, ok := phaseAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p
	}
	return DefaultPhase
}

// Priority is a task's relative importance.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// DefaultPriority is used for missing or unrecognised priority values.
const DefaultPriority = PriorityMedium

// ParsePriority matches LOW, MEDIUM or HIGH case-insensitively. Anything else,
// "urgent" included, becomes DefaultPriority.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium:
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	default:
		return DefaultPriority
	}
}

// TaskDraft is a task title produced by the drafting stage.
type TaskDraft struct {
	Title string
}

// TaskSpec is one fully described task of a plan.
type TaskSpec struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	EstimatedDuration string   `json:"estimatedDuration"`
	Dependencies      []string `json:"dependencies"`
	Phase             Phase    `json:"phase"`
	Priority          Priority `json:"priority"`
}

// MarshalJSON always renders dependencies as an array.
func (t TaskSpec) MarshalJSON() ([]byte, error) {
	type alias TaskSpec
	a := alias(t)
	if a.Dependencies == nil {
		a.Dependencies = []string{}
	}
	return json.Marshal(a)
}

// Plan is an ordered list of tasks. Every dependency names an earlier task.
type Plan []TaskSpec

// Titles returns the task titles in order.
func (p Plan) Titles() []string {
	out := make([]string, len(p))
	for i, t := range p {
		out[i] = t.Title
	}
	return out
}

// Source records how a plan was produced.
type Source string

const (
	// SourceGenerated: every task was elaborated by a provider.
	SourceGenerated Source = "generated"
	// SourcePartial: drafting succeeded but some tasks were synthesised from their title.
	SourcePartial Source = "partial"
	// SourceFallback: the deterministic plan was used.
	SourceFallback Source = "fallback"
)

// Request is the input to Engine.Plan.
type Request struct {
	Goal string `json:"goal"`
	// DesiredTaskCountHint is clamped into the configured task range; zero means no preference.
	DesiredTaskCountHint int `json:"desiredTaskCountHint,omitempty"`
}

// Result is the output of Engine.Plan.
type Result struct {
	RequestID string `json:"requestId"`
	Goal      string `json:"goal"`
	Plan      Plan   `json:"plan"`
	Source    Source `json:"source"`
	// Provider produced the draft; empty for fallback plans.
	Provider string `json:"provider,omitempty"`
	// Degraded counts tasks synthesised after their elaboration failed.
	Degraded int `json:"degraded"`
}
