package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Joseda-hg/lazygtd/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	app   *App
}

// NewTuiCmd creates the terminal UI command
func NewTuiCmd(flags *Flags, app *App) *TuiCmd {
	return &TuiCmd{flags: flags, app: app}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	projector := cmd.app.NewProjector()
	go projector.Run(ctx)
	select {
	case <-projector.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	if cmd.app.Config.Web.Enabled {
		addr := fmt.Sprintf(":%d", cmd.app.Config.Web.Port)
		server := newWebServer(cmd.app)
		go func() {
			if err := server.ListenAndServe(ctx, addr); err != nil {
				cmd.app.Log.Error().Err(err).Str("addr", addr).Msg("web server stopped")
			}
		}()
	}

	return tui.Run(tui.Options{
		Store:     cmd.app.Store,
		Projector: projector,
		Log:       cmd.app.Log.With().Str("component", "tui").Logger(),
	})
}
