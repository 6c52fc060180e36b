package plan

import "fmt"

// IssueKind classifies a consistency finding.
type IssueKind string

const (
	IssueDanglingReference  IssueKind = "dangling_reference"
	IssueDuplicateTask      IssueKind = "duplicate_task"
	IssueDuplicateMilestone IssueKind = "duplicate_milestone"
)

// Issue is a referential problem in an otherwise schema-valid plan.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	Milestone string    `json:"milestone,omitempty"`
	Task      string    `json:"task,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueDanglingReference:
		return fmt.Sprintf("milestone %q references unknown task %q", i.Milestone, i.Task)
	case IssueDuplicateTask:
		return fmt.Sprintf("task name %q appears more than once", i.Task)
	case IssueDuplicateMilestone:
		return fmt.Sprintf("milestone name %q appears more than once", i.Milestone)
	}
	return string(i.Kind)
}

// CheckConsistency reports milestone references that do not match any task
// name, plus duplicated task or milestone names. The schema itself does not
// enforce any of these.
func CheckConsistency(p *ProjectPlan) []Issue {
	if p == nil {
		return nil
	}

	var issues []Issue
	known := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if known[t.TaskName] {
			issues = append(issues, Issue{Kind: IssueDuplicateTask, Task: t.TaskName})
			continue
		}
		known[t.TaskName] = true
	}

	seen := make(map[string]bool, len(p.Milestones))
	for _, m := range p.Milestones {
		if seen[m.MilestoneName] {
			issues = append(issues, Issue{Kind: IssueDuplicateMilestone, Milestone: m.MilestoneName})
		}
		seen[m.MilestoneName] = true

		for _, ref := range m.Tasks {
			if !known[ref] {
				issues = append(issues, Issue{Kind: IssueDanglingReference, Milestone: m.MilestoneName, Task: ref})
			}
		}
	}
	return issues
}
