package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Joseda-hg/lazygtd/pkg/iojson"
)

type ProjectCmd struct {
	flags *Flags
	app   *App
}

// NewProjectCmd creates the project command
func NewProjectCmd(flags *Flags, app *App) *ProjectCmd {
	return &ProjectCmd{flags: flags, app: app}
}

// Register adds the project command and its subcommands to app
func (cmd *ProjectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "project",
		Usage:     "Manage projects",
		UsageText: "lazygtd project <add|ls|rm>",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a project",
				UsageText: "lazygtd project add <name...>",
				Action:    cmd.runAdd,
			},
			{
				Name:      "ls",
				Usage:     "List projects as JSON lines",
				UsageText: "lazygtd project ls",
				Action:    cmd.runList,
			},
			{
				Name:        "rm",
				Usage:       "Delete a project and its tasks",
				UsageText:   "lazygtd project rm <id>",
				Description: "Deletes the project together with every task filed under it.",
				Action:      cmd.runRemove,
			},
		},
	})

	return app
}

func (cmd *ProjectCmd) runAdd(ctx context.Context, c *cli.Command) error {
	name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("usage: lazygtd project add <name>")
	}
	project, err := cmd.app.Store.CreateProject(ctx, name)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return iojson.WriteLine(c.Root().Writer, project)
}

func (cmd *ProjectCmd) runList(ctx context.Context, c *cli.Command) error {
	projects, err := cmd.app.Store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	return iojson.WriteLines(c.Root().Writer, projects)
}

func (cmd *ProjectCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: lazygtd project rm <id>")
	}
	deleted, err := cmd.app.Store.DeleteProject(ctx, c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "deleted project and %d task(s)\n", len(deleted))
	return nil
}
