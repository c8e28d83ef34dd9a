package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Joseda-hg/lazygtd/internal/commands"
	"github.com/Joseda-hg/lazygtd/pkg/logutils"
)

// Populated at build-time via -ldflags.
var (
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

// shutdown closes the app and then the log, which stays open long enough to
// record a close failure.
func shutdown(closeApp func() error, closeLog func()) error {
	if closeLog != nil {
		defer closeLog()
	}
	if err := closeApp(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		logCloser func()
		flags     = &commands.Flags{}
		app       = &commands.App{}
	)

	root := &cli.Command{
		Name:      "lazygtd",
		Usage:     "Getting Things Done in the terminal and the browser",
		UsageText: "lazygtd [global options] command [command options]",
		Description: `lazygtd sorts your tasks into Focus, Optional, Later, Inbox, Projects and Done.

Run 'lazygtd' with no arguments to open the terminal UI. Enable web.enabled
in the config to serve the browser UI alongside it, or run 'lazygtd serve'.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("LAZYGTD_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/lazygtd.log)",
				Sources:     cli.EnvVars("LAZYGTD_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LAZYGTD_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("LAZYGTD_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// The TUI owns the terminal, so logs always go to a file.
			logFile := flags.LogFile
			if logFile == "" {
				logFile = flags.DataDir + string(os.PathSeparator) + "lazygtd.log"
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			flags.DataDirSet = c.IsSet("data-dir")
			if err := app.Open(ctx, flags, logger); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			return shutdown(app.Close, logCloser)
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, app)

	root = commands.NewTasksCmd(flags, app).Register(root)
	root = commands.NewProjectCmd(flags, app).Register(root)
	root = commands.NewChatCmd(flags, app).Register(root)
	root = commands.NewServeCmd(flags, app).Register(root)

	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'lazygtd --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
