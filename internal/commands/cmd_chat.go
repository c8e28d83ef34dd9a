package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Joseda-hg/lazygtd/pkg/iojson"
)

type ChatCmd struct {
	flags *Flags
	app   *App

	jsonOutput bool
	clear      bool
}

// NewChatCmd creates the chat command
func NewChatCmd(flags *Flags, app *App) *ChatCmd {
	return &ChatCmd{flags: flags, app: app}
}

// Register adds the chat command to app
func (cmd *ChatCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "chat",
		Usage:     "Ask the assistant to review or change your tasks",
		UsageText: "lazygtd chat [--json] [--clear] <message...>",
		Description: `Sends the message, along with the current task list, to the configured AI CLI.
Changes the assistant asks for are applied and listed after its reply.

The message is read from stdin when no arguments are given.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the reply and action results as JSON", Destination: &cmd.jsonOutput},
			&cli.BoolFlag{Name: "clear", Usage: "clear the conversation instead of sending", Destination: &cmd.clear},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ChatCmd) run(ctx context.Context, c *cli.Command) error {
	out := c.Root().Writer
	if cmd.clear {
		if err := cmd.app.Chat.Clear(ctx); err != nil {
			return fmt.Errorf("clear chat: %w", err)
		}
		_, _ = fmt.Fprintln(out, "cleared")
		return nil
	}

	message := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(message) == "" {
		piped, err := iojson.ReadPiped(os.Stdin)
		if err != nil {
			return err
		}
		message = piped
	}

	reply, err := cmd.app.Chat.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.Write(out, reply)
	}

	_, _ = fmt.Fprintln(out, reply.Message.Content)
	for _, result := range reply.Actions {
		if result.Error != "" {
			_, _ = fmt.Fprintf(out, "  ! %s %s: %s\n", result.Action.Op, result.Action.ID, result.Error)
			continue
		}
		id := result.Action.ID
		if result.Task != nil {
			id = result.Task.ID
		}
		_, _ = fmt.Fprintf(out, "  ✓ %s %s\n", result.Action.Op, id)
	}
	return nil
}
