package planner

import (
	"fmt"
	"strings"
)

func buildDraftSystemPrompt(minTasks, maxTasks int) string {
	count := fmt.Sprintf("%d-%d", minTasks, maxTasks)
	if minTasks == maxTasks {
		count = fmt.Sprintf("exactly %d", maxTasks)
	}
	return fmt.Sprintf(`You are an expert project manager. Break a user's goal into %s short, actionable task names in the order they should be done.

Output Requirements:
- Respond with ONLY a JSON array of strings
- Each string is a concise task title of at most eight words
- Do NOT number the tasks or include explanations or markdown`, count)
}

func buildDraftUserPrompt(goal string) string {
	return fmt.Sprintf(`Goal: %s

Respond with only the JSON array of task names.`, goal)
}

const elaborateSystemPrompt = `You are an expert project manager. Describe a single task of a larger plan.

Respond with ONLY a JSON object with these fields:
- description: string (what needs to be done, one or two sentences)
- estimatedDuration: string (for example "2 days", "1 week", "3-5 days")
- dependencies: array of strings (titles of earlier tasks this one needs; only use titles from the list given, or an empty array)
- phase: one of PLANNING, RESEARCH, DESIGN, EXECUTION, REVIEW, LAUNCH, MAINTENANCE
- priority: one of LOW, MEDIUM, HIGH

Do NOT include markdown formatting or explanations.`

func buildElaborateUserPrompt(goal, title string, priorTitles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\nTask: %s\n\n", goal, title)
	if len(priorTitles) == 0 {
		b.WriteString("This is the first task; it has no earlier tasks to depend on.\n")
	} else {
		b.WriteString("Earlier tasks:\n")
		for _, t := range priorTitles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	b.WriteString("\nRespond with only the JSON object.")
	return b.String()
}
