// Package render draws plan tables as monospaced text for terminals and chat
// replies.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rahul/crewplan/internal/plan"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	hoursStyle  = cellStyle.Align(lipgloss.Right)
	subtleStyle = lipgloss.NewStyle().Faint(true)
)

// Tables renders the task and milestone tables followed by the total
// estimated hours.
func Tables(tasks plan.TaskTable, milestones plan.MilestoneTable) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Task Details"))
	b.WriteString("\n")
	b.WriteString(grid(tasks.Columns(), tasks.Records(), 1))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("Total estimated hours: %s", plan.FormatHours(tasks.TotalHours()))))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Milestone Details"))
	b.WriteString("\n")
	b.WriteString(grid(milestones.Columns(), milestones.Records(), -1))
	b.WriteString("\n")
	return b.String()
}

// Table renders any bordered table with the plan tables' styling.
func Table(headers []string, rows [][]string) string {
	return grid(headers, rows, -1)
}

// grid draws one bordered table. rightCol is right-aligned (-1 for none).
func grid(headers []string, rows [][]string, rightCol int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == rightCol:
				return hoursStyle
			default:
				return cellStyle
			}
		})
	if len(rows) == 0 {
		return t.String() + "\n" + subtleStyle.Render("(none)")
	}
	return t.String()
}
