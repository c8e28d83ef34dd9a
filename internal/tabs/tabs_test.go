package tabs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

const today = "2026-01-10"

func str(value string) *string {
	return &value
}

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want Tab
	}{
		{
			name: "due today is focus",
			task: model.Task{Status: model.StatusActive, NextAction: str("Buy milk"), DueDate: str("2026-01-10")},
			want: Focus,
		},
		{
			name: "overdue is focus",
			task: model.Task{Status: model.StatusActive, NextAction: str("Buy milk"), DueDate: str("2026-01-05")},
			want: Focus,
		},
		{
			name: "anytime overrides overdue date",
			task: model.Task{Status: model.StatusActive, NextAction: str("Read book"), CanDoAnytime: true, DueDate: str("2026-01-05")},
			want: Optional,
		},
		{
			name: "no next action is inbox",
			task: model.Task{Status: model.StatusActive},
			want: Inbox,
		},
		{
			name: "future date is later",
			task: model.Task{Status: model.StatusActive, NextAction: str("Plan trip"), DueDate: str("2026-02-01")},
			want: Later,
		},
		{
			name: "done wins",
			task: model.Task{Status: model.StatusDone, NextAction: str("Buy milk"), DueDate: str("2026-01-05")},
			want: Done,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.task, today))
		})
	}
}

func TestClassifyRules(t *testing.T) {
	dates := []*string{nil, str("2025-12-31"), str(today), str("2026-03-01")}
	actions := []*string{nil, str(""), str("   "), str("Call Bob")}
	statuses := []model.Status{model.StatusInbox, model.StatusActive, model.StatusSomeday, model.StatusDone}

	for _, status := range statuses {
		for _, action := range actions {
			for _, anytime := range []bool{false, true} {
				for _, due := range dates {
					task := model.Task{Status: status, NextAction: action, CanDoAnytime: anytime, DueDate: due}
					got := Classify(task, today)

					switch {
					case status == model.StatusDone:
						assert.Equal(t, Done, got)
					case !task.HasNextAction():
						assert.Equal(t, Inbox, got)
					case anytime:
						assert.Equal(t, Optional, got)
					case due == nil:
						assert.Equal(t, Inbox, got)
					case *due <= today:
						assert.Equal(t, Focus, got)
					default:
						assert.Equal(t, Later, got)
					}
					assert.NotEqual(t, Projects, got)
				}
			}
		}
	}
}

func TestClassifyDoesNotModifyTask(t *testing.T) {
	task := model.Task{ID: "a", Status: model.StatusActive, NextAction: str("x"), DueDate: str("2026-01-01")}
	before := task
	_ = Classify(task, today)
	assert.Equal(t, before, task)
}

func TestCompareOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "done-early", Status: model.StatusDone, DueDate: str("2025-01-01"), CreatedAt: base},
		{ID: "undated", Status: model.StatusActive, CreatedAt: base},
		{ID: "late", Status: model.StatusActive, DueDate: str("2026-02-01"), CreatedAt: base},
		{ID: "early", Status: model.StatusActive, DueDate: str("2026-01-02"), CreatedAt: base},
		{ID: "undated-older", Status: model.StatusInbox, CreatedAt: base.Add(-time.Hour)},
		{ID: "done-undated", Status: model.StatusDone, CreatedAt: base},
	}

	Sort(tasks)

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"early", "late", "undated-older", "undated", "done-early", "done-undated"}, ids)
}

func TestCompareBreaksTiesByCreationThenID(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := model.Task{ID: "a", Status: model.StatusActive, DueDate: str(today), CreatedAt: created}
	b := model.Task{ID: "b", Status: model.StatusActive, DueDate: str(today), CreatedAt: created}
	c := model.Task{ID: "c", Status: model.StatusActive, DueDate: str(today), CreatedAt: created.Add(-time.Minute)}

	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(b, a))
	assert.Negative(t, Compare(c, a))
	assert.Zero(t, Compare(a, a))
}

func TestSortIsIdempotent(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "1", Status: model.StatusDone, CreatedAt: created},
		{ID: "2", Status: model.StatusActive, DueDate: str("2026-01-03"), CreatedAt: created},
		{ID: "3", Status: model.StatusActive, CreatedAt: created},
		{ID: "4", Status: model.StatusActive, DueDate: str("2026-01-03"), CreatedAt: created},
		{ID: "5", Status: model.StatusActive, DueDate: str("2026-01-01"), CreatedAt: created},
	}

	Sort(tasks)
	once := append([]model.Task(nil), tasks...)
	Sort(tasks)
	assert.Equal(t, once, tasks)
}

func TestFilterByTab(t *testing.T) {
	tasks := []model.Task{
		{ID: "focus", Status: model.StatusActive, NextAction: str("a"), DueDate: str(today), ProjectID: str("p1")},
		{ID: "later", Status: model.StatusActive, NextAction: str("b"), DueDate: str("2026-05-01")},
		{ID: "inbox", Status: model.StatusInbox},
		{ID: "done", Status: model.StatusDone, NextAction: str("c"), ProjectID: str("p1")},
	}

	focus := Filter(tasks, Focus, today)
	require.Len(t, focus, 1)
	assert.Equal(t, "focus", focus[0].ID)

	projects := Filter(tasks, Projects, today)
	require.Len(t, projects, 1)
	assert.Equal(t, "focus", projects[0].ID)

	counts := Counts(tasks, today)
	assert.Equal(t, 1, counts[Focus])
	assert.Equal(t, 1, counts[Later])
	assert.Equal(t, 1, counts[Inbox])
	assert.Equal(t, 1, counts[Done])
	assert.Equal(t, 0, counts[Optional])
	assert.Equal(t, 1, counts[Projects])
}

func TestParse(t *testing.T) {
	tab, err := Parse(" Focus ")
	require.NoError(t, err)
	assert.Equal(t, Focus, tab)

	_, err = Parse("")
	require.Error(t, err)

	_, err = Parse("someday")
	require.Error(t, err)
}

func TestToday(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "2026-01-10", Today(now))
}
