package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
)

type promptKind int

const (
	promptAdd promptKind = iota
	promptClarify
	promptDue
	promptSearch
)

// promptState is the single-line input shown over the task list.
type promptState struct {
	kind    promptKind
	taskID  string
	initial string
}

func (p promptState) title() string {
	switch p.kind {
	case promptClarify:
		return "Next action"
	case promptDue:
		return "Due date (YYYY-MM-DD, empty clears)"
	case promptSearch:
		return "Search"
	default:
		return "New inbox item"
	}
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.prompt = &promptState{kind: promptAdd}
	return nil
}

func (u *UI) clarifyTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.prompt = &promptState{kind: promptClarify, taskID: selected.ID, initial: model.StringValue(selected.NextAction)}
	return nil
}

func (u *UI) editDue(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.prompt = &promptState{kind: promptDue, taskID: selected.ID, initial: model.StringValue(selected.DueDate)}
	return nil
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.prompt = &promptState{kind: promptSearch, initial: u.query}
	return nil
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/2)
	x0 := (maxX - width) / 2
	y0 := (maxY - 3) / 2

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Clear()
		fmt.Fprint(view, u.prompt.initial)
		view.SetCursor(len([]rune(u.prompt.initial)), 0)
	}
	view.Title = u.prompt.title()
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetViewOnTop(viewPrompt)
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, view *gocui.View) error {
	value := ""
	if view != nil {
		value = view.Buffer()
	}
	return u.applyPrompt(gui, value)
}

// applyPrompt acts on the submitted value. Errors leave the prompt open with
// the message in the footer.
func (u *UI) applyPrompt(gui *gocui.Gui, value string) error {
	if u.prompt == nil {
		return nil
	}
	value = strings.TrimSpace(value)
	ctx := context.Background()

	var err error
	switch u.prompt.kind {
	case promptAdd:
		if value == "" {
			break
		}
		_, err = u.store.CreateTask(ctx, db.TaskInput{Title: value})
	case promptClarify:
		_, err = u.store.ClarifyTask(ctx, u.prompt.taskID, value, nil)
	case promptDue:
		_, err = u.store.UpdateTask(ctx, u.prompt.taskID, db.TaskPatch{DueDate: &value})
	case promptSearch:
		u.query = value
		u.selected = 0
	}
	if err != nil {
		u.status = err.Error()
		return nil
	}

	u.status = ""
	u.closePrompt(gui)
	return u.loadTasks()
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	u.closePrompt(gui)
	return nil
}

func (u *UI) closePrompt(gui *gocui.Gui) {
	u.prompt = nil
	if gui != nil {
		_ = gui.DeleteView(viewPrompt)
		_, _ = gui.SetCurrentView(viewTasks)
	}
}
