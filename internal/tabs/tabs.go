// Package tabs decides which tab a task belongs to and how tasks are ordered.
//
// Everything here is pure: the current date is always passed in by the
// caller, and tasks are never modified.
package tabs

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

type Tab string

const (
	Focus    Tab = "focus"
	Optional Tab = "optional"
	Later    Tab = "later"
	Inbox    Tab = "inbox"
	Projects Tab = "projects"
	Done     Tab = "done"
)

var all = []Tab{Focus, Optional, Later, Inbox, Projects, Done}

var labels = map[Tab]string{
	Focus:    "Focus",
	Optional: "Optional",
	Later:    "Later",
	Inbox:    "Inbox",
	Projects: "Projects",
	Done:     "Done",
}

// All returns the tabs in display order.
func All() []Tab {
	return slices.Clone(all)
}

func (t Tab) Label() string {
	if label, ok := labels[t]; ok {
		return label
	}
	return string(t)
}

// Parse accepts a tab name in any case. The empty string is rejected.
func Parse(value string) (Tab, error) {
	tab := Tab(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := labels[tab]; !ok {
		return "", fmt.Errorf("unknown tab %q", value)
	}
	return tab, nil
}

// Today formats now as a local calendar date in model.DateLayout.
func Today(now time.Time) string {
	return now.Local().Format(model.DateLayout)
}

// Classify returns the tab for task given today's date. The checks run in a
// fixed order and the first match wins; Projects is never returned.
func Classify(task model.Task, today string) Tab {
	switch {
	case task.Status == model.StatusDone:
		return Done
	case !task.HasNextAction():
		return Inbox
	case task.CanDoAnytime:
		return Optional
	case task.DueDate != nil && *task.DueDate <= today:
		return Focus
	case task.DueDate != nil:
		return Later
	default:
		return Inbox
	}
}

// Compare orders done tasks last, dated tasks before undated ones and earlier
// due dates first. Remaining ties fall back to creation time, then ID.
func Compare(a, b model.Task) int {
	aDone := a.Status == model.StatusDone
	bDone := b.Status == model.StatusDone
	if aDone != bDone {
		if aDone {
			return 1
		}
		return -1
	}

	aDated := a.DueDate != nil
	bDated := b.DueDate != nil
	if aDated != bDated {
		if aDated {
			return -1
		}
		return 1
	}
	if aDated {
		if c := strings.Compare(*a.DueDate, *b.DueDate); c != 0 {
			return c
		}
	}

	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort orders tasks in place with Compare.
func Sort(tasks []model.Task) {
	slices.SortStableFunc(tasks, Compare)
}

// Filter returns the sorted tasks shown under tab. The Projects view holds
// every unfinished task that belongs to a project.
func Filter(tasks []model.Task, tab Tab, today string) []model.Task {
	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if Matches(task, tab, today) {
			result = append(result, task)
		}
	}
	Sort(result)
	return result
}

func Matches(task model.Task, tab Tab, today string) bool {
	if tab == Projects {
		return task.ProjectID != nil && *task.ProjectID != "" && task.Status != model.StatusDone
	}
	return Classify(task, today) == tab
}

// Counts returns the number of tasks under each tab.
func Counts(tasks []model.Task, today string) map[Tab]int {
	counts := make(map[Tab]int, len(all))
	for _, tab := range all {
		counts[tab] = 0
	}
	for _, task := range tasks {
		counts[Classify(task, today)]++
		if Matches(task, Projects, today) {
			counts[Projects]++
		}
	}
	return counts
}
