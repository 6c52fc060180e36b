package plan

import (
	"strconv"
	"strings"
)

// TaskTable is the flattened task view of a plan, one row per TaskEstimate.
type TaskTable struct {
	Rows []TaskEstimate
}

// MilestoneTable is the flattened milestone view of a plan, one row per Milestone.
type MilestoneTable struct {
	Rows []Milestone
}

// NewTables projects a plan into its two tabular views. The tables hold
// copies, so callers may keep them after the plan is discarded.
func NewTables(p *ProjectPlan) (TaskTable, MilestoneTable) {
	c := p.Clone()
	if c == nil {
		return TaskTable{}, MilestoneTable{}
	}
	return TaskTable{Rows: c.Tasks}, MilestoneTable{Rows: c.Milestones}
}

// Columns returns the column names in field declaration order.
func (TaskTable) Columns() []string {
	return []string{"task_name", "estimated_time_hours", "required_resources"}
}

// Records renders every row as display strings.
func (t TaskTable) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = []string{r.TaskName, FormatHours(r.EstimatedTimeHours), FormatList(r.RequiredResources)}
	}
	return out
}

// TotalHours sums the estimates of every task.
func (t TaskTable) TotalHours() float64 {
	var total float64
	for _, r := range t.Rows {
		total += r.EstimatedTimeHours
	}
	return total
}

// Columns returns the column names in field declaration order.
func (MilestoneTable) Columns() []string {
	return []string{"milestone_name", "tasks"}
}

// Records renders every row as display strings.
func (m MilestoneTable) Records() [][]string {
	out := make([][]string, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = []string{r.MilestoneName, FormatList(r.Tasks)}
	}
	return out
}

// FormatHours prints hours without trailing zeros ("8", "2.5").
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// FormatList prints a list the way the planning UI shows it: ["a", "b"].
func FormatList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
