package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
	"github.com/felixgeelhaar/taskplanner/internal/render"
)

var planCmd = &cobra.Command{
	Use:   "plan [goal...]",
	Short: "Generate a task plan for a goal",
	Long: `Generate an ordered task plan for a goal.

The goal is taken from the arguments. Without arguments it is read from
stdin, or asked for interactively when stdin is a terminal.

Examples:
  taskplanner plan "Launch a bakery website in two weeks"
  taskplanner plan --tasks 6 -o json "Migrate the billing service to Postgres"
  echo "Write a conference talk" | taskplanner plan`,
	RunE: runPlan,
}

var (
	planTasks   int
	planOutput  string
	planNoColor bool
)

func init() {
	planCmd.Flags().IntVarP(&planTasks, "tasks", "n", 0, "desired number of tasks (clamped to the configured range)")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "text", "output format: text, json or yaml")
	planCmd.Flags().BoolVar(&planNoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(planOutput)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	goal, err := resolveGoal(args, in, isTerminal(in), promptGoal)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := log.DefaultLogger()
	a := buildApp(ctx, appConfig, logger, nil, nil)

	out := cmd.OutOrStdout()
	return planAndRender(ctx, a.planner, planner.Request{Goal: goal, DesiredTaskCountHint: planTasks}, out, format, textOptions(out, planNoColor))
}

func planAndRender(ctx context.Context, p planner.Planner, req planner.Request, w io.Writer, format render.Format, opts render.Options) error {
	res, err := p.Plan(ctx, req)
	if err != nil {
		return err
	}
	return render.Write(w, format, res, opts)
}

// resolveGoal joins args, falling back to the prompt on a terminal and to
// reading in otherwise.
func resolveGoal(args []string, in io.Reader, interactive bool, prompt func() (string, error)) (string, error) {
	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal != "" {
		return goal, nil
	}

	if interactive {
		g, err := prompt()
		if err != nil {
			return "", err
		}
		goal = g
	} else if in != nil {
		data, err := io.ReadAll(io.LimitReader(in, 64<<10))
		if err != nil {
			return "", fmt.Errorf("failed to read goal from stdin: %w", err)
		}
		goal = string(data)
	}

	goal = strings.TrimSpace(goal)
	if goal == "" {
		return "", errors.NewEmptyGoalError()
	}
	return goal, nil
}

func promptGoal() (string, error) {
	var goal string

	input := huh.NewText().
		Title("What do you want to achieve?").
		Placeholder("Launch a bakery website in two weeks").
		CharLimit(2000).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("goal must not be empty")
			}
			return nil
		}).
		Value(&goal)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		if err == huh.ErrUserAborted {
			return "", context.Canceled
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return goal, nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// textOptions disables color for pipes and wraps to the terminal width.
func textOptions(w io.Writer, noColor bool) render.Options {
	opts := render.Options{NoColor: noColor}

	if !isTerminal(w) {
		opts.NoColor = true
		return opts
	}
	f := w.(*os.File)
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
		opts.Width = width - 2
	}
	return opts
}
