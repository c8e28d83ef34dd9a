package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
	"github.com/Joseda-hg/lazygtd/pkg/iojson"
)

// taskLine is one task as printed by the task commands.
type taskLine struct {
	model.Task
	Tab tabs.Tab `json:"tab"`
}

type TasksCmd struct {
	flags *Flags
	app   *App
	now   func() time.Time

	// add
	addNext    string
	addDue     string
	addAnytime bool
	addProject string

	// list
	listTab     string
	listStatus  string
	listProject string
	listQuery   string

	// clarify
	clarifyProject string

	// postpone
	postponeDays int64
}

// NewTasksCmd creates the task commands
func NewTasksCmd(flags *Flags, app *App) *TasksCmd {
	return &TasksCmd{flags: flags, app: app, now: time.Now}
}

// Register adds add, list, done, undo, clarify, postpone and rm to app
func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "add",
			Usage:     "Capture a task",
			UsageText: "lazygtd add [--next action] [--due YYYY-MM-DD] [--anytime] [--project id] <title...>",
			Description: `Creates a task. Without --next it lands in the inbox until clarified.

Prints the created task as a JSON line.`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "next", Aliases: []string{"n"}, Usage: "next physical action", Destination: &cmd.addNext},
				&cli.StringFlag{Name: "due", Aliases: []string{"d"}, Usage: "due date (YYYY-MM-DD)", Destination: &cmd.addDue},
				&cli.BoolFlag{Name: "anytime", Aliases: []string{"a"}, Usage: "can be done anytime", Destination: &cmd.addAnytime},
				&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "project id", Destination: &cmd.addProject},
			},
			Action: cmd.runAdd,
		},
		&cli.Command{
			Name:      "list",
			Aliases:   []string{"ls"},
			Usage:     "List tasks as JSON lines",
			UsageText: "lazygtd list [--tab focus|optional|later|inbox|projects|done] [--status s] [--project id] [--query q]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "tab", Aliases: []string{"t"}, Usage: "only tasks in this tab", Destination: &cmd.listTab},
				&cli.StringFlag{Name: "status", Usage: "only tasks with this status", Destination: &cmd.listStatus},
				&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "only tasks in this project", Destination: &cmd.listProject},
				&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "substring of title or next action", Destination: &cmd.listQuery},
			},
			Action: cmd.runList,
		},
		&cli.Command{
			Name:      "done",
			Usage:     "Mark a task done",
			UsageText: "lazygtd done <id>",
			Action:    cmd.runDone,
		},
		&cli.Command{
			Name:      "undo",
			Usage:     "Reopen a done task",
			UsageText: "lazygtd undo <id>",
			Action:    cmd.runUndo,
		},
		&cli.Command{
			Name:      "clarify",
			Usage:     "Set the next action of a task",
			UsageText: "lazygtd clarify [--project id] <id> <action...>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "file under this project", Destination: &cmd.clarifyProject},
			},
			Action: cmd.runClarify,
		},
		&cli.Command{
			Name:      "postpone",
			Usage:     "Push a task's due date forward",
			UsageText: "lazygtd postpone [--days n] <id>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "days", Usage: "days to postpone by", Value: 1, Destination: &cmd.postponeDays},
			},
			Action: cmd.runPostpone,
		},
		&cli.Command{
			Name:      "rm",
			Usage:     "Delete a task",
			UsageText: "lazygtd rm <id>",
			Action:    cmd.runRemove,
		},
	)

	return app
}

func (cmd *TasksCmd) today() string {
	return tabs.Today(cmd.now())
}

func (cmd *TasksCmd) print(c *cli.Command, task model.Task) error {
	return iojson.WriteLine(c.Root().Writer, taskLine{Task: task, Tab: tabs.Classify(task, cmd.today())})
}

func (cmd *TasksCmd) runAdd(ctx context.Context, c *cli.Command) error {
	title := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if title == "" {
		return fmt.Errorf("usage: lazygtd add <title>")
	}

	task, err := cmd.app.Store.CreateTask(ctx, db.TaskInput{
		Title:        title,
		NextAction:   model.StringPtr(cmd.addNext),
		DueDate:      model.StringPtr(cmd.addDue),
		CanDoAnytime: cmd.addAnytime,
		ProjectID:    model.StringPtr(cmd.addProject),
	})
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	return cmd.print(c, task)
}

func (cmd *TasksCmd) runList(ctx context.Context, c *cli.Command) error {
	today := cmd.today()
	tasks, err := cmd.app.Store.ListTasks(ctx, model.Filter{
		Query:     cmd.listQuery,
		Status:    model.Status(cmd.listStatus),
		ProjectID: cmd.listProject,
		Tab:       cmd.listTab,
		Today:     today,
	})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	for _, task := range tasks {
		if err := iojson.WriteLine(c.Root().Writer, taskLine{Task: task, Tab: tabs.Classify(task, today)}); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *TasksCmd) runDone(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: lazygtd done <id>")
	}
	task, err := cmd.app.Store.CompleteTask(ctx, c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return cmd.print(c, task)
}

func (cmd *TasksCmd) runUndo(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: lazygtd undo <id>")
	}
	task, err := cmd.app.Store.UncompleteTask(ctx, c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("reopen task: %w", err)
	}
	return cmd.print(c, task)
}

func (cmd *TasksCmd) runClarify(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: lazygtd clarify <id> <action>")
	}
	action := strings.Join(c.Args().Slice()[1:], " ")

	var project *string
	if cmd.clarifyProject != "" {
		project = &cmd.clarifyProject
	}
	task, err := cmd.app.Store.ClarifyTask(ctx, c.Args().Get(0), action, project)
	if err != nil {
		return fmt.Errorf("clarify task: %w", err)
	}
	return cmd.print(c, task)
}

func (cmd *TasksCmd) runPostpone(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: lazygtd postpone [--days n] <id>")
	}
	task, err := cmd.app.Store.PostponeTask(ctx, c.Args().Get(0), int(cmd.postponeDays), cmd.today())
	if err != nil {
		return fmt.Errorf("postpone task: %w", err)
	}
	return cmd.print(c, task)
}

func (cmd *TasksCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: lazygtd rm <id>")
	}
	if err := cmd.app.Store.DeleteTask(ctx, c.Args().Get(0)); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "deleted")
	return nil
}
