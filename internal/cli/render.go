package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"budgetwise/internal/budget"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorMuted  = lipgloss.Color("#6F6E69")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// RenderTitle renders a bold title line.
func RenderTitle(title string) string {
	return titleStyle.Render(title)
}

// RenderPlan renders an optimization result as a table followed by its totals.
func RenderPlan(plan budget.Plan) string {
	rows := make([][]string, 0, len(plan.Allocations))
	for _, a := range plan.Allocations {
		rows = append(rows, []string{
			a.Category,
			a.PreviousMonthAmount.String(),
			a.AllocatedAmount.String(),
			fmt.Sprint(a.Utility),
			a.RecommendationNote,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("Category", "Previous", "Allocated", "Utility", "Note").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 {
				a := plan.Allocations[row]
				if a.AllocatedAmount.Cents < a.PreviousMonthAmount.Cents {
					return cellStyle.Foreground(colorOrange)
				}
				return cellStyle.Foreground(colorGreen)
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("Budget %s (%s)", plan.Period, plan.Method)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Allocated %s of %s, based on %s",
		budget.Total(plan.Allocations), plan.Total, plan.Previous)))
	if plan.UsedDefault {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("No spending recorded last month, default split used"))
	}
	b.WriteString("\n")
	return b.String()
}
