// Package render formats plan results for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/taskplanner/internal/planner"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s (supported: text, json, yaml)", s)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	taskStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	descStyle = lipgloss.NewStyle().
			PaddingLeft(4)
)

// Options tweak text rendering.
type Options struct {
	// NoColor strips ANSI styling, for pipes and tests.
	NoColor bool
	// Width wraps descriptions; zero disables wrapping.
	Width int
}

// Write encodes res to w in the given format.
func Write(w io.Writer, f Format, res *planner.Result, opts Options) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		return writeYAML(w, res)
	default:
		_, err := io.WriteString(w, Text(res, opts))
		return err
	}
}

// Text renders res as a numbered task list.
func Text(res *planner.Result, opts Options) string {
	style := func(s lipgloss.Style) lipgloss.Style {
		if opts.NoColor {
			return lipgloss.NewStyle().
				PaddingLeft(s.GetPaddingLeft()).
				Width(s.GetWidth())
		}
		return s
	}

	var b strings.Builder
	b.WriteString(style(titleStyle).Render("Plan: " + res.Goal))
	b.WriteString("\n")

	meta := "source " + string(res.Source)
	if res.Provider != "" {
		meta += " via " + res.Provider
	}
	if res.RequestID != "" {
		meta += " (" + res.RequestID + ")"
	}
	b.WriteString(style(mutedStyle).Render(meta))
	b.WriteString("\n")

	if res.Degraded > 0 {
		b.WriteString(style(warnStyle).Render(fmt.Sprintf("%d of %d tasks could not be elaborated and were filled in from their title", res.Degraded, len(res.Plan))))
		b.WriteString("\n")
	}

	for i, t := range res.Plan {
		b.WriteString("\n")
		b.WriteString(style(taskStyle).Render(fmt.Sprintf("%d. %s", i+1, t.Title)))
		b.WriteString("\n")

		ds := style(descStyle)
		if opts.Width > 4 {
			ds = ds.Width(opts.Width)
		}
		b.WriteString(ds.Render(t.Description))
		b.WriteString("\n")

		b.WriteString("    ")
		b.WriteString(field(style, "phase", string(t.Phase)))
		b.WriteString("  ")
		b.WriteString(field(style, "priority", string(t.Priority)))
		b.WriteString("  ")
		b.WriteString(field(style, "duration", t.EstimatedDuration))
		b.WriteString("\n")

		if len(t.Dependencies) > 0 {
			b.WriteString("    ")
			b.WriteString(field(style, "after", strings.Join(t.Dependencies, ", ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func field(style func(lipgloss.Style) lipgloss.Style, key, value string) string {
	return style(keyStyle).Render(key+":") + " " + style(valueStyle).Render(value)
}

// yamlResult mirrors the JSON field names.
type yamlResult struct {
	RequestID string     `yaml:"requestId"`
	Goal      string     `yaml:"goal"`
	Source    string     `yaml:"source"`
	Provider  string     `yaml:"provider,omitempty"`
	Degraded  int        `yaml:"degraded"`
	Plan      []yamlTask `yaml:"plan"`
}

type yamlTask struct {
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	EstimatedDuration string   `yaml:"estimatedDuration"`
	Dependencies      []string `yaml:"dependencies"`
	Phase             string   `yaml:"phase"`
	Priority          string   `yaml:"priority"`
}

func writeYAML(w io.Writer, res *planner.Result) error {
	out := yamlResult{
		RequestID: res.RequestID,
		Goal:      res.Goal,
		Source:    string(res.Source),
		Provider:  res.Provider,
		Degraded:  res.Degraded,
		Plan:      make([]yamlTask, len(res.Plan)),
	}
	for i, t := range res.Plan {
		deps := t.Dependencies
		if deps == nil {
			deps = []string{}
		}
		out.Plan[i] = yamlTask{
			Title:             t.Title,
			Description:       t.Description,
			EstimatedDuration: t.EstimatedDuration,
			Dependencies:      deps,
			Phase:             string(t.Phase),
			Priority:          string(t.Priority),
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
