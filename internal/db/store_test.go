package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []model.Change
}

func (p *recordingPublisher) Publish(change model.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

func (p *recordingPublisher) kinds() []model.ChangeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]model.ChangeKind, 0, len(p.changes))
	for _, change := range p.changes {
		kinds = append(kinds, change.Kind)
	}
	return kinds
}

func TestCreateTaskDefaults(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	active, err := store.CreateTask(ctx, TaskInput{Title: "Buy milk", Status: model.StatusActive})
	require.NoError(t, err)
	assert.NotEmpty(t, active.ID)
	require.NotNil(t, active.NextAction)
	assert.Equal(t, "Buy milk", *active.NextAction)

	inbox, err := store.CreateTask(ctx, TaskInput{Title: "  Something about taxes  "})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInbox, inbox.Status)
	assert.Equal(t, "Something about taxes", inbox.Title)
	assert.Nil(t, inbox.NextAction)

	clarified, err := store.CreateTask(ctx, TaskInput{Title: "Trip", NextAction: model.StringPtr("Book hotel")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, clarified.Status)

	history, err := store.ListHistory(ctx, active.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "created", history[0].EventType)
}

func TestCreateTaskValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateTask(ctx, TaskInput{Title: "   "})
	require.ErrorIs(t, err, ErrInvalid)

	bad := "2026-13-01"
	_, err = store.CreateTask(ctx, TaskInput{Title: "x", DueDate: &bad})
	require.ErrorIs(t, err, ErrInvalid)

	short := "2026-1-5"
	_, err = store.CreateTask(ctx, TaskInput{Title: "x", DueDate: &short})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = store.CreateTask(ctx, TaskInput{Title: "x", Status: "waiting"})
	require.ErrorIs(t, err, ErrInvalid)

	missing := "no-such-project"
	_, err = store.CreateTask(ctx, TaskInput{Title: "x", ProjectID: &missing})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCompleteAndUncomplete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, TaskInput{Title: "Write report", Status: model.StatusActive})
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)

	done, err := store.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)

	reloaded, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.CompletedAt)
	assert.Equal(t, done.CompletedAt.UnixNano(), reloaded.CompletedAt.UnixNano())

	reopened, err := store.UncompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)

	inbox, err := store.CreateTask(ctx, TaskInput{Title: "Unclear", Status: model.StatusDone})
	require.NoError(t, err)
	require.NotNil(t, inbox.CompletedAt)
	reopened, err = store.UncompleteTask(ctx, inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInbox, reopened.Status)
}

func TestUncompleteOpenTaskIsNoop(t *testing.T) {
	store, publisher := newTestStore(t)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, TaskInput{Title: "Still open", NextAction: model.StringPtr("Start")})
	require.NoError(t, err)
	published := len(publisher.kinds())

	got, err := store.UncompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.UpdatedAt.UnixNano(), got.UpdatedAt.UnixNano())
	assert.Equal(t, model.StatusActive, got.Status)

	history, err := store.ListHistory(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, publisher.kinds(), published)

	_, err = store.UncompleteTask(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQueryTreatsWildcardsLiterally(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateTask(ctx, TaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, TaskInput{Title: "100% done_ish"})
	require.NoError(t, err)

	percent, err := store.ListTasks(ctx, model.Filter{Query: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "100% done_ish", percent[0].Title)

	underscore, err := store.ListTasks(ctx, model.Filter{Query: "B_y"})
	require.NoError(t, err)
	assert.Empty(t, underscore)

	literal, err := store.ListTasks(ctx, model.Filter{Query: "done_"})
	require.NoError(t, err)
	assert.Len(t, literal, 1)
}

func TestUpdateTaskStatusKeepsCompletedAt(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, TaskInput{Title: "a", Status: model.StatusActive})
	require.NoError(t, err)

	done := model.StatusDone
	updated, err := store.UpdateTask(ctx, task.ID, TaskPatch{Status: &done})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	someday := model.StatusSomeday
	updated, err = store.UpdateTask(ctx, task.ID, TaskPatch{Status: &someday})
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)
}

func TestUpdateTaskClearsOptionalFields(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	due := "2026-01-20"
	task, err := store.CreateTask(ctx, TaskInput{Title: "a", NextAction: model.StringPtr("do a"), DueDate: &due})
	require.NoError(t, err)

	empty := ""
	anytime := true
	updated, err := store.UpdateTask(ctx, task.ID, TaskPatch{DueDate: &empty, CanDoAnytime: &anytime})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
	assert.True(t, updated.CanDoAnytime)
	require.NotNil(t, updated.NextAction)

	history, err := store.ListHistory(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "updated: due: '2026-01-20' -> 'none'; anytime: 'false' -> 'true'", history[1].Details)
}

func TestClarifyMovesInboxToActive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, "House")
	require.NoError(t, err)

	task, err := store.CreateTask(ctx, TaskInput{Title: "Fix the roof?"})
	require.NoError(t, err)

	_, err = store.ClarifyTask(ctx, task.ID, "  ", nil)
	require.ErrorIs(t, err, ErrInvalid)

	clarified, err := store.ClarifyTask(ctx, task.ID, "Call the roofer", &project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, clarified.Status)
	assert.Equal(t, "Call the roofer", model.StringValue(clarified.NextAction))
	assert.Equal(t, project.ID, model.StringValue(clarified.ProjectID))
}

func TestPostponeTask(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	due := "2026-01-30"
	dated, err := store.CreateTask(ctx, TaskInput{Title: "a", Status: model.StatusActive, DueDate: &due})
	require.NoError(t, err)

	postponed, err := store.PostponeTask(ctx, dated.ID, 3, "2026-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-02", model.StringValue(postponed.DueDate))
	assert.Equal(t, 1, postponed.PostponeCount)

	postponed, err = store.PostponeTask(ctx, dated.ID, 1, "2026-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-03", model.StringValue(postponed.DueDate))
	assert.Equal(t, 2, postponed.PostponeCount)

	undated, err := store.CreateTask(ctx, TaskInput{Title: "b", Status: model.StatusActive})
	require.NoError(t, err)
	postponed, err = store.PostponeTask(ctx, undated.ID, 7, "2026-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-17", model.StringValue(postponed.DueDate))

	_, err = store.PostponeTask(ctx, undated.ID, 0, "2026-01-10")
	require.ErrorIs(t, err, ErrInvalid)
	_, err = store.PostponeTask(ctx, "missing", 1, "2026-01-10")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListTasksByTabIsSorted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, input := range []TaskInput{
		{Title: "late focus", Status: model.StatusActive, DueDate: model.StringPtr("2026-01-10")},
		{Title: "early focus", Status: model.StatusActive, DueDate: model.StringPtr("2026-01-02")},
		{Title: "later", Status: model.StatusActive, DueDate: model.StringPtr("2026-03-01")},
		{Title: "anytime", Status: model.StatusActive, CanDoAnytime: true, DueDate: model.StringPtr("2026-01-01")},
		{Title: "inbox"},
	} {
		_, err := store.CreateTask(ctx, input)
		require.NoError(t, err)
	}

	focus, err := store.ListTasks(ctx, model.Filter{Tab: "focus", Today: "2026-01-10"})
	require.NoError(t, err)
	require.Len(t, focus, 2)
	assert.Equal(t, "early focus", focus[0].Title)
	assert.Equal(t, "late focus", focus[1].Title)

	optional, err := store.ListTasks(ctx, model.Filter{Tab: "optional", Today: "2026-01-10"})
	require.NoError(t, err)
	require.Len(t, optional, 1)
	assert.Equal(t, "anytime", optional[0].Title)

	all, err := store.ListTasks(ctx, model.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "inbox", all[4].Title)

	searched, err := store.ListTasks(ctx, model.Filter{Query: "focus"})
	require.NoError(t, err)
	assert.Len(t, searched, 2)

	_, err = store.ListTasks(ctx, model.Filter{Tab: "focus"})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = store.ListTasks(ctx, model.Filter{Tab: "nope", Today: "2026-01-10"})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestDeleteProjectCascades(t *testing.T) {
	store, publisher := newTestStore(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, "Garden")
	require.NoError(t, err)
	assert.Equal(t, "tester", project.Owner)

	inProject, err := store.CreateTask(ctx, TaskInput{Title: "Plant tomatoes", ProjectID: &project.ID})
	require.NoError(t, err)
	loose, err := store.CreateTask(ctx, TaskInput{Title: "Unrelated"})
	require.NoError(t, err)

	deleted, err := store.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{inProject.ID}, deleted)

	_, err = store.GetTask(ctx, inProject.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetTask(ctx, loose.ID)
	require.NoError(t, err)

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	assert.Equal(t, []model.ChangeKind{
		model.ChangeProjectUpserted,
		model.ChangeTaskUpserted,
		model.ChangeTaskUpserted,
		model.ChangeTaskDeleted,
		model.ChangeProjectDeleted,
	}, publisher.kinds())
}

func TestDeleteTaskKeepsHistory(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, TaskInput{Title: "Temp"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteTask(ctx, task.ID))
	require.ErrorIs(t, store.DeleteTask(ctx, task.ID), ErrNotFound)

	history, err := store.ListHistory(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "deleted", history[1].EventType)
}

func TestRenameProject(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, "Work")
	require.NoError(t, err)

	renamed, err := store.RenameProject(ctx, project.ID, "Office")
	require.NoError(t, err)
	assert.Equal(t, "Office", renamed.Name)

	_, err = store.RenameProject(ctx, project.ID, "")
	require.ErrorIs(t, err, ErrInvalid)
	_, err = store.RenameProject(ctx, "missing", "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChatLog(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		_, err := store.AddChatMessage(ctx, model.RoleUser, content)
		require.NoError(t, err)
	}

	recent, err := store.ListChatMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Content)
	assert.Equal(t, "three", recent[1].Content)

	_, err = store.AddChatMessage(ctx, "system", "x")
	require.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, store.ClearChat(ctx))
	all, err := store.ListChatMessages(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func newTestStore(t *testing.T) (*Store, *recordingPublisher) {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mu sync.Mutex
	clock := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	publisher := &recordingPublisher{}
	return NewStore(db, WithClock(tick), WithPublisher(publisher), WithOwner("tester")), publisher
}
