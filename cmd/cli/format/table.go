// Package format renders job collections as terminal tables.
package format

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

// Jobs renders a slice of jobs as a table to w. An empty slice renders a
// dimmed "No jobs found" line instead of an empty table.
func Jobs(w io.Writer, jobs []*jobqueue.Job) error {
	if len(jobs) == 0 {
		empty := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
		_, err := fmt.Fprintln(w, empty.Render("No jobs found"))
		return err
	}

	columns := []table.Column{
		{Title: "ID", Width: 36},
		{Title: "STATE", Width: 10},
		{Title: "PRIORITY", Width: 8},
		{Title: "ATTEMPTS", Width: 8},
		{Title: "COMMAND", Width: 40},
		{Title: "CREATED", Width: 20},
		{Title: "LAST ERROR", Width: 30},
	}

	var rows []table.Row
	for _, j := range jobs {
		rows = append(rows, table.Row{
			j.ID,
			stateLabel(j.State),
			fmt.Sprintf("%d", j.Priority),
			fmt.Sprintf("%d/%d", j.Attempts, j.MaxRetries),
			truncate(j.Command, 40),
			time.Unix(j.CreatedAt, 0).UTC().Format(time.DateTime),
			truncate(j.LastError, 30),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)),
		table.WithWidth(160),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)

	_, err := fmt.Fprintln(w, t.View())
	return err
}

// Counts renders a state -> count summary, used by `status`.
func Counts(w io.Writer, counts map[jobqueue.State]int) error {
	columns := []table.Column{
		{Title: "STATE", Width: 12},
		{Title: "COUNT", Width: 8},
	}
	states := []jobqueue.State{jobqueue.StatePending, jobqueue.StateProcessing, jobqueue.StateCompleted, jobqueue.StateDead}

	var rows []table.Row
	for _, st := range states {
		rows = append(rows, table.Row{stateLabel(st), fmt.Sprintf("%d", counts[st])})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)),
		table.WithWidth(30),
	)
	s := table.DefaultStyles()
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)

	_, err := fmt.Fprintln(w, t.View())
	return err
}

func stateLabel(s jobqueue.State) string {
	style := lipgloss.NewStyle()
	switch s {
	case jobqueue.StateCompleted:
		style = style.Foreground(lipgloss.Color("42"))
	case jobqueue.StateDead:
		style = style.Foreground(lipgloss.Color("196"))
	case jobqueue.StateProcessing:
		style = style.Foreground(lipgloss.Color("220"))
	}
	return style.Render(string(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
