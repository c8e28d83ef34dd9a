package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/rs/zerolog"

	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/realtime"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

const (
	viewTabs    = "tabs"
	viewTasks   = "tasks"
	viewDetail  = "detail"
	viewHistory = "history"
	viewFooter  = "footer"
	viewPrompt  = "prompt"
	viewHelp    = "help"
)

type UI struct {
	store     *db.Store
	projector *realtime.Projector
	gui       *gocui.Gui
	log       zerolog.Logger
	now       func() time.Time

	tab      tabs.Tab
	query    string
	tasks    []model.Task
	counts   map[tabs.Tab]int
	projects map[string]string
	history  []model.HistoryEntry
	selected int

	prompt     *promptState
	helpActive bool
	status     string
}

type Options struct {
	Store *db.Store
	// Projector, when set, supplies the task list and pushes redraws for
	// changes made elsewhere.
	Projector *realtime.Projector
	Log       zerolog.Logger
	Now       func() time.Time
}

func newUI(opts Options) *UI {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &UI{
		store:     opts.Store,
		projector: opts.Projector,
		log:       opts.Log,
		now:       now,
		tab:       tabs.Focus,
		counts:    map[tabs.Tab]int{},
		projects:  map[string]string{},
	}
}

func Run(opts Options) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(opts)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadTasks(); err != nil {
		return err
	}

	if ui.projector != nil {
		ui.projector.OnChange(func() {
			gui.Update(func(*gocui.Gui) error {
				return ui.loadTasks()
			})
		})
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}

	return nil
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	global := []struct {
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, u.quit},
		{'q', u.quit},
		{'r', u.reload},
		{'a', u.addTask},
		{'c', u.clarifyTask},
		{'u', u.editDue},
		{'x', u.toggleDone},
		{'p', u.postponeDay},
		{'P', u.postponeWeek},
		{'n', u.toggleAnytime},
		{'d', u.deleteTask},
		{'/', u.startSearch},
		{'?', u.toggleHelp},
		{gocui.KeyTab, u.nextTab},
		{gocui.KeyBacktab, u.prevTab},
	}
	for _, binding := range global {
		if err := gui.SetKeybinding("", binding.key, gocui.ModNone, binding.handler); err != nil {
			return err
		}
	}

	for index, tab := range tabs.All() {
		key := rune('1' + index)
		if err := gui.SetKeybinding("", key, gocui.ModNone, func(gui *gocui.Gui, _ *gocui.View) error {
			return u.selectTab(gui, tab)
		}); err != nil {
			return err
		}
	}

	for _, key := range []any{'j', gocui.KeyArrowDown} {
		if err := gui.SetKeybinding(viewTasks, key, gocui.ModNone, u.moveDown); err != nil {
			return err
		}
	}
	for _, key := range []any{'k', gocui.KeyArrowUp} {
		if err := gui.SetKeybinding(viewTasks, key, gocui.ModNone, u.moveUp); err != nil {
			return err
		}
	}

	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEnter, gocui.ModNone, u.submitPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEsc, gocui.ModNone, u.cancelPrompt); err != nil {
		return err
	}
	for _, key := range []any{gocui.KeyEsc, 'q', '?'} {
		if err := gui.SetKeybinding(viewHelp, key, gocui.ModNone, u.closeHelp); err != nil {
			return err
		}
	}

	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewTasks, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
		return u.onListClick(gui, opts)
	}}); err != nil {
		return err
	}
	for _, name := range []string{viewTasks, viewHistory, viewDetail} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	tabsView, err := gui.SetView(viewTabs, 0, 0, maxX-1, 2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	tabsView.Frame = true
	tabsView.Title = "lazygtd " + tabs.Today(u.now())
	u.renderTabs(tabsView)

	footerY1 := max(maxY-1, 4)
	footerY0 := footerY1 - 2
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 3
	bodyBottom := footerY0 - 1
	if bodyBottom <= bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := l.listWidth - 1
	rightX0 := leftX1 + 1
	detailY1 := bodyTop + l.detailHeight - 1

	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	tasksView.Title = u.tab.Label()
	applyViewStyle(tasksView, true, true)
	u.renderTaskList(tasksView)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, maxX-1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Task"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false, false)
	u.renderDetail(detailView)

	historyView, err := gui.SetView(viewHistory, rightX0, detailY1+1, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		historyView.Title = "History"
		historyView.Wrap = true
	}
	applyViewStyle(historyView, false, false)
	u.renderHistory(historyView)

	if u.prompt != nil {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if u.prompt == nil && !u.helpActive {
		_, _ = gui.SetCurrentView(viewTasks)
	}
	gui.Cursor = u.prompt != nil

	return nil
}

type layout struct {
	listWidth    int
	detailHeight int
}

func computeLayout(width, height int) layout {
	listWidth := width * 3 / 5
	if listWidth < 30 {
		listWidth = min(30, width-1)
	}
	detailHeight := max(height/2, 6)
	if detailHeight > height-3 {
		detailHeight = max(height-3, 1)
	}
	return layout{listWidth: listWidth, detailHeight: detailHeight}
}

// loadTasks rebuilds the visible list for the active tab.
func (u *UI) loadTasks() error {
	ctx := context.Background()
	today := tabs.Today(u.now())

	var (
		all      []model.Task
		projects []model.Project
	)
	if u.projector != nil {
		all = u.projector.Tasks()
		projects = u.projector.Projects()
	} else {
		var err error
		if all, err = u.store.ListTasks(ctx, model.Filter{}); err != nil {
			return err
		}
		if projects, err = u.store.ListProjects(ctx); err != nil {
			return err
		}
	}

	u.projects = make(map[string]string, len(projects))
	for _, project := range projects {
		u.projects[project.ID] = project.Name
	}

	u.counts = tabs.Counts(all, today)
	visible := tabs.Filter(all, u.tab, today)
	if query := strings.ToLower(strings.TrimSpace(u.query)); query != "" {
		matched := visible[:0]
		for _, task := range visible {
			if strings.Contains(strings.ToLower(task.Title), query) ||
				strings.Contains(strings.ToLower(model.StringValue(task.NextAction)), query) {
				matched = append(matched, task)
			}
		}
		visible = matched
	}
	u.tasks = visible

	if u.selected >= len(u.tasks) {
		u.selected = max(len(u.tasks)-1, 0)
	}
	return u.loadHistory()
}

func (u *UI) loadHistory() error {
	selected := u.selectedTask()
	if selected == nil {
		u.history = nil
		return nil
	}

	history, err := u.store.ListHistory(context.Background(), selected.ID)
	if err != nil {
		return err
	}
	u.history = history
	return nil
}

func (u *UI) selectedTask() *model.Task {
	if u.selected >= 0 && u.selected < len(u.tasks) {
		return &u.tasks[u.selected]
	}
	return nil
}

func (u *UI) renderTabs(view *gocui.View) {
	view.Clear()
	fmt.Fprint(view, formatTabBar(u.tab, u.counts))
	if u.query != "" {
		fmt.Fprintf(view, "  search: %s", u.query)
	}
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	fmt.Fprintln(view, "a add | c clarify | u due | x done | p/P postpone day/week | n anytime | d delete")
	fmt.Fprintln(view, "1-6/tab tabs | j/k move | / search | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTaskList(view *gocui.View) {
	view.Clear()
	today := tabs.Today(u.now())
	if len(u.tasks) == 0 {
		fmt.Fprint(view, "  nothing here")
		return
	}
	for i, task := range u.tasks {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, today, u.projects))
	}
	view.SetCursor(0, u.selected)
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedTask()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}
	fmt.Fprint(view, formatTaskDetail(*selected, tabs.Today(u.now()), u.projects))
}

func (u *UI) renderHistory(view *gocui.View) {
	view.Clear()
	for _, entry := range u.history {
		fmt.Fprintf(view, "%s | %s | %s\n", entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.EventType, entry.Details)
	}
}

func (u *UI) onListClick(gui *gocui.Gui, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewTasks)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)
	if row >= len(u.tasks) {
		return nil
	}
	u.selected = row
	return u.loadHistory()
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() || view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() || view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) selectTab(_ *gocui.Gui, tab tabs.Tab) error {
	if u.inputActive() {
		return nil
	}
	if u.tab != tab {
		u.tab = tab
		u.selected = 0
	}
	return u.loadTasks()
}

func (u *UI) nextTab(gui *gocui.Gui, _ *gocui.View) error {
	return u.selectTab(gui, cycleTab(u.tab, 1))
}

func (u *UI) prevTab(gui *gocui.Gui, _ *gocui.View) error {
	return u.selectTab(gui, cycleTab(u.tab, -1))
}

func cycleTab(current tabs.Tab, delta int) tabs.Tab {
	order := tabs.All()
	index := 0
	for i, tab := range order {
		if tab == current {
			index = i
			break
		}
	}
	next := (index + delta + len(order)) % len(order)
	return order[next]
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < len(u.tasks)-1 {
		u.selected++
		return u.loadHistory()
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
		return u.loadHistory()
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadTasks()
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.prompt != nil {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	if gui != nil {
		_ = gui.DeleteView(viewHelp)
		_, _ = gui.SetCurrentView(viewTasks)
	}
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 16
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetViewOnTop(viewHelp)
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) toggleDone(_ *gocui.Gui, _ *gocui.View) error {
	return u.withSelected(func(ctx context.Context, task model.Task) error {
		if task.Status == model.StatusDone {
			_, err := u.store.UncompleteTask(ctx, task.ID)
			return err
		}
		_, err := u.store.CompleteTask(ctx, task.ID)
		return err
	})
}

func (u *UI) toggleAnytime(_ *gocui.Gui, _ *gocui.View) error {
	return u.withSelected(func(ctx context.Context, task model.Task) error {
		anytime := !task.CanDoAnytime
		_, err := u.store.UpdateTask(ctx, task.ID, db.TaskPatch{CanDoAnytime: &anytime})
		return err
	})
}

func (u *UI) postponeDay(_ *gocui.Gui, _ *gocui.View) error {
	return u.postpone(1)
}

func (u *UI) postponeWeek(_ *gocui.Gui, _ *gocui.View) error {
	return u.postpone(7)
}

func (u *UI) postpone(days int) error {
	return u.withSelected(func(ctx context.Context, task model.Task) error {
		updated, err := u.store.PostponeTask(ctx, task.ID, days, tabs.Today(u.now()))
		if err != nil {
			return err
		}
		u.status = fmt.Sprintf("postponed to %s", model.StringValue(updated.DueDate))
		return nil
	})
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	return u.withSelected(func(ctx context.Context, task model.Task) error {
		return u.store.DeleteTask(ctx, task.ID)
	})
}

// withSelected runs fn against the selected task, reporting failures in the
// footer instead of tearing down the UI.
func (u *UI) withSelected(fn func(ctx context.Context, task model.Task) error) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.status = ""
	if err := fn(context.Background(), *selected); err != nil {
		u.log.Debug().Err(err).Str("task", selected.ID).Msg("tui action failed")
		u.status = err.Error()
		return nil
	}
	return u.loadTasks()
}

func (u *UI) inputActive() bool {
	return u.prompt != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Tabs:",
		"  1 Focus | 2 Optional | 3 Later | 4 Inbox | 5 Projects | 6 Done",
		"  tab / shift-tab cycle tabs",
		"",
		"Navigation:",
		"  j/k or arrows move selection | mouse click selects",
		"",
		"Actions:",
		"  a add to inbox | c clarify next action | u set due date",
		"  x toggle done | n toggle can do anytime | d delete",
		"  p postpone one day | P postpone one week",
		"",
		"Other:",
		"  / search titles | r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
