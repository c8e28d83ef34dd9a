package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/lazygtd/internal/chat"
	"github.com/Joseda-hg/lazygtd/internal/config"
	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/realtime"
	"github.com/Joseda-hg/lazygtd/pkg/executil"
)

// App holds the services every command works against. It is allocated
// before the commands are registered and filled in by Open.
type App struct {
	Config config.Config
	Store  *db.Store
	Hub    *realtime.Hub
	Chat   *chat.Service
	Log    zerolog.Logger

	conn *sql.DB
}

// Open loads the config, opens the database and wires the change feed.
func (a *App) Open(_ context.Context, flags *Flags, log zerolog.Logger) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The starter file leaves db_path empty so it keeps following --data-dir.
	if _, err := os.Stat(flags.ConfigPath); os.IsNotExist(err) {
		if err := config.Save(flags.ConfigPath, cfg); err != nil {
			log.Warn().Err(err).Str("path", flags.ConfigPath).Msg("write default config")
		}
	}

	if cfg.DBPath == "" || flags.DataDirSet {
		cfg.DBPath = filepath.Join(flags.DataDir, "lazygtd.db")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", flags.ConfigPath, err)
	}

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	hub := realtime.NewHub(log.With().Str("component", "hub").Logger())
	store := db.NewStore(conn, db.WithPublisher(hub), db.WithOwner(cfg.User))
	chatSvc := chat.NewService(store, &executil.RealExecutor{}, chat.Options{
		Command: cfg.Chat.Command,
		Args:    cfg.Chat.Args,
		Timeout: cfg.Chat.Timeout,
		History: cfg.Chat.History,
	}, log.With().Str("component", "chat").Logger())

	*a = App{Config: cfg, Store: store, Hub: hub, Chat: chatSvc, Log: log, conn: conn}
	log.Debug().Str("db", cfg.DBPath).Msg("database opened")
	return nil
}

// NewProjector returns a projector over the app's store and hub.
func (a *App) NewProjector() *realtime.Projector {
	return realtime.NewProjector(a.Hub, a.Store, a.Config.Sync.ReconnectDelay, a.Log.With().Str("component", "projector").Logger())
}

func (a *App) Close() error {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
