package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	priorityStyles = map[string]lipgloss.Style{
		models.PriorityHigh:   cellStyle.Foreground(lipgloss.Color("1")).Bold(true),
		models.PriorityMedium: cellStyle.Foreground(lipgloss.Color("3")),
		models.PriorityLow:    cellStyle.Foreground(lipgloss.Color("2")),
	}
)

// Column holding the priority band in both tables
const priorityColumn = 3

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func renderAnalysis(w io.Writer, result models.AnalysisResult) {
	if len(result.Tasks) == 0 {
		fmt.Fprintln(w, "No tasks to analyze.")
	} else {
		rows := make([][]string, len(result.Tasks))
		for i, t := range result.Tasks {
			rows[i] = []string{
				t.ID,
				truncate(t.Title, 40),
				strconv.FormatFloat(t.Score, 'f', 2, 64),
				t.Priority,
				dueString(t.DueDate),
				strconv.FormatFloat(t.EstimatedHours, 'f', -1, 64),
				strconv.Itoa(t.Importance),
				strconv.Itoa(t.Blocks),
				flags(t),
			}
		}
		tbl := newTable("ID", "Title", "Score", "Priority", "Due", "Hours", "Imp", "Blocks", "Flags").
			Rows(rows...).
			StyleFunc(styleFor(rows))
		fmt.Fprintln(w, tbl.Render())
	}

	if len(result.Cycles) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Dependency cycles"))
		for _, c := range result.Cycles {
			fmt.Fprintln(w, "  "+strings.Join(c, " -> ")+" -> "+c[0])
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintln(w, warningStyle.Render("warning: "+warning))
	}
	for _, e := range result.Errors {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("rejected record %d: %s", e.Index, e.Error())))
	}
}

func renderSuggestions(w io.Writer, result models.SuggestionResult) {
	if len(result.Top3) == 0 {
		fmt.Fprintln(w, "No tasks to suggest.")
	} else {
		rows := make([][]string, len(result.Top3))
		for i, t := range result.Top3 {
			rows[i] = []string{
				strconv.Itoa(i + 1),
				t.ID,
				strconv.FormatFloat(t.Score, 'f', 2, 64),
				t.Priority,
				truncate(t.Title, 40),
				t.Reason,
			}
		}
		tbl := newTable("#", "ID", "Score", "Priority", "Title", "Why").
			Rows(rows...).
			StyleFunc(styleFor(rows))
		fmt.Fprintln(w, tbl.Render())
	}

	for _, e := range result.Errors {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("rejected record %d: %s", e.Index, e.Error())))
	}
}

func styleFor(rows [][]string) table.StyleFunc {
	return func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == priorityColumn && row >= 0 && row < len(rows) {
			if style, ok := priorityStyles[rows[row][col]]; ok {
				return style
			}
		}
		return cellStyle
	}
}

func dueString(d *models.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func flags(t models.ScoredTask) string {
	var out []string
	if t.InCycle {
		out = append(out, "cycle")
	}
	if len(t.UnresolvedDependencies) > 0 {
		out = append(out, "missing deps")
	}
	return strings.Join(out, ", ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
