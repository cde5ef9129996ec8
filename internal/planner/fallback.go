package planner

import "fmt"

// FallbackPlan returns the fixed four step plan used when no provider can help.
// It makes no calls and never fails.
func FallbackPlan(goal string) Plan {
	g := truncateRunes(goal, 100)
	return Plan{
		{
			Title:             "Define scope",
			Description:       fmt.Sprintf("Clarify objectives, constraints and success criteria for: %s", g),
			EstimatedDuration: "1-2 days",
			Dependencies:      []string{},
			Phase:             PhasePlanning,
			Priority:          PriorityHigh,
		},
		{
			Title:             "Execute core work",
			Description:       fmt.Sprintf("Carry out the main work needed to achieve: %s", g),
			EstimatedDuration: "5-7 days",
			Dependencies:      []string{"Define scope"},
			Phase:             PhaseExecution,
			Priority:          PriorityHigh,
		},
		{
			Title:             "Review and finalize",
			Description:       fmt.Sprintf("Check the results against the success criteria and close any gaps for: %s", g),
			EstimatedDuration: "2-3 days",
			Dependencies:      []string{"Execute core work"},
			Phase:             PhaseReview,
			Priority:          PriorityMedium,
		},
		{
			Title:             "Launch",
			Description:       fmt.Sprintf("Deliver the finished outcome and communicate it to stakeholders: %s", g),
			EstimatedDuration: "1 day",
			Dependencies:      []string{"Review and finalize"},
			Phase:             PhaseLaunch,
			Priority:          PriorityHigh,
		},
	}
}

// minimalSpec stands in for a task whose elaboration failed.
func minimalSpec(title, goal string, index int, previous string) TaskSpec {
	spec := TaskSpec{
		Title:             title,
		Description:       fmt.Sprintf("Plan and execute: %s for goal '%s'", title, truncateRunes(goal, 80)),
		EstimatedDuration: DefaultDuration,
		Dependencies:      []string{},
		Phase:             PhaseExecution,
		Priority:          PriorityMedium,
	}
	if index == 0 {
		spec.Phase = PhasePlanning
	}
	if previous != "" {
		spec.Dependencies = []string{previous}
	}
	return spec
}

// finalize drops dependencies that do not name an earlier task and truncates to limit.
func finalize(plan Plan, limit int) Plan {
	if limit > 0 && len(plan) > limit {
		plan = plan[:limit]
	}
	earlier := make([]string, 0, len(plan))
	for i := range plan {
		plan[i].Dependencies = filterDependencies(plan[i].Dependencies, plan[i].Title, earlier)
		earlier = append(earlier, plan[i].Title)
	}
	return plan
}
