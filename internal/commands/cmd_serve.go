package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Joseda-hg/lazygtd/internal/web"
)

type ServeCmd struct {
	flags *Flags
	app   *App

	port int64
}

// NewServeCmd creates the serve command
func NewServeCmd(flags *Flags, app *App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to app
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the web interface without the terminal UI",
		UsageText: "lazygtd serve [--port n]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "port",
				Usage:       "listen port (defaults to web.port from the config)",
				Sources:     cli.EnvVars("LAZYGTD_PORT"),
				Destination: &cmd.port,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	port := cmd.app.Config.Web.Port
	if cmd.port > 0 {
		port = int(cmd.port)
	}
	return newWebServer(cmd.app).ListenAndServe(ctx, fmt.Sprintf(":%d", port))
}

func newWebServer(app *App) *web.Server {
	return web.NewServer(app.Store, app.Hub, app.Log.With().Str("component", "web").Logger(), web.WithChat(app.Chat))
}
