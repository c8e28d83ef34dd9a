package tui

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

func formatTabBar(active tabs.Tab, counts map[tabs.Tab]int) string {
	parts := make([]string, 0, len(tabs.All()))
	for index, tab := range tabs.All() {
		label := fmt.Sprintf("%d %s (%d)", index+1, tab.Label(), counts[tab])
		if tab == active {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

func formatTaskSummary(task model.Task, today string, projects map[string]string) string {
	var b strings.Builder
	if task.Status == model.StatusDone {
		b.WriteString("[x] ")
	}
	if task.DueDate != nil {
		due := *task.DueDate
		if task.Status != model.StatusDone && due < today {
			due += "!"
		}
		fmt.Fprintf(&b, "%-11s ", due)
	}
	b.WriteString(task.Title)
	if task.HasNextAction() && *task.NextAction != task.Title {
		fmt.Fprintf(&b, " -> %s", *task.NextAction)
	}
	if name := projects[model.StringValue(task.ProjectID)]; name != "" {
		fmt.Fprintf(&b, " (%s)", name)
	}
	if task.CanDoAnytime {
		b.WriteString(" ~")
	}
	return b.String()
}

func formatTaskDetail(task model.Task, today string, projects map[string]string) string {
	lines := []string{
		task.Title,
		"",
		fmt.Sprintf("Tab: %s", tabs.Classify(task, today).Label()),
		fmt.Sprintf("Status: %s", task.Status),
		fmt.Sprintf("Next action: %s", orNone(model.StringValue(task.NextAction))),
		fmt.Sprintf("Due: %s", orNone(model.StringValue(task.DueDate))),
		fmt.Sprintf("Can do anytime: %t", task.CanDoAnytime),
		fmt.Sprintf("Project: %s", orNone(projects[model.StringValue(task.ProjectID)])),
		fmt.Sprintf("Postponed: %d", task.PostponeCount),
		fmt.Sprintf("Created: %s", task.CreatedAt.Local().Format("2006-01-02 15:04")),
	}
	if task.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("Completed: %s", task.CompletedAt.Local().Format("2006-01-02 15:04")))
	}
	return strings.Join(lines, "\n")
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "none"
	}
	return value
}
