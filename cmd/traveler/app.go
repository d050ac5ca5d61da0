package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/zulandar/traveler/internal/config"
	"github.com/zulandar/traveler/internal/db"
	"github.com/zulandar/traveler/internal/delivery"
	"github.com/zulandar/traveler/internal/logging"
	"github.com/zulandar/traveler/internal/nlu"
	"github.com/zulandar/traveler/internal/nlu/dialogflow"
	"github.com/zulandar/traveler/internal/nlu/gemini"
	"github.com/zulandar/traveler/internal/onboarding"
	"github.com/zulandar/traveler/internal/store"
	"github.com/zulandar/traveler/internal/store/api"
	"github.com/zulandar/traveler/internal/store/memstore"
	"github.com/zulandar/traveler/internal/store/sqlstore"
	"github.com/zulandar/traveler/internal/telegraph"
	"github.com/zulandar/traveler/internal/telegraph/discord"
	"github.com/zulandar/traveler/internal/telegraph/telegram"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultConfigPath = "traveler.yaml"

// configFlag is bound to the root --config flag.
var configFlag = defaultConfigPath

// app bundles what every command needs once config is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *gorm.DB          // nil unless a database is configured
	sql      *sqlstore.Store   // nil unless a database is configured
	store    store.Store
	sessions onboarding.SessionStore
	recorder delivery.RunRecorder // nil without a database
}

// loadApp reads config, builds the logger and opens the stores. A missing
// config file is tolerated only when --config was left at its default, so
// env-only deployments work.
func loadApp(cmd *cobra.Command) (*app, error) {
	allowMissing := !cmd.Flags().Changed("config")
	cfg, err := config.Load(configFlag, allowMissing)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if cfg.UsesDatabase() {
		if err := a.openDB(); err != nil {
			return nil, err
		}
	}

	switch cfg.Store.Backend {
	case config.BackendSQL:
		a.store = a.sql
	case config.BackendMemory:
		a.store = memstore.New()
	default:
		client, err := api.New(api.ClientOpts{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})
		if err != nil {
			a.close()
			return nil, err
		}
		a.store = client
	}
	if cfg.Store.Sessions == config.BackendSQL {
		a.sessions = a.sql
	} else {
		a.sessions = onboarding.NewMemorySessionStore()
	}
	if a.sql != nil {
		a.recorder = a.sql
	}
	return a, nil
}

// openDB connects to the configured database and wraps it in a sqlstore.
func (a *app) openDB() error {
	d := a.cfg.Database
	gdb, err := db.Open(db.Options{
		Driver:   d.Driver,
		DSN:      d.DSN,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Name:     d.Name,
		Path:     d.Path,
	})
	if err != nil {
		return err
	}
	s, err := sqlstore.New(gdb)
	if err != nil {
		return err
	}
	a.db, a.sql = gdb, s
	return nil
}

// requireSQL opens the database for commands that only make sense with one,
// even when the bot itself runs on another backend.
func (a *app) requireSQL() (*sqlstore.Store, error) {
	if a.sql == nil {
		if err := a.openDB(); err != nil {
			return nil, err
		}
	}
	return a.sql, nil
}

func (a *app) close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	a.logger.Sync()
}

// newAdapter builds the chat platform adapter. The returned handler serves
// webhook updates and is nil in polling mode. A sendOnly Telegram adapter
// leaves the webhook of a running bot untouched. Replaced in tests.
var newAdapter = func(cfg *config.Config, logger *zap.Logger, sendOnly bool) (telegraph.Adapter, http.Handler, error) {
	switch cfg.Platform {
	case config.PlatformDiscord:
		a, err := discord.New(discord.AdapterOpts{BotToken: cfg.Discord.Token, Logger: logger})
		return a, nil, err
	default:
		opts := telegram.AdapterOpts{
			BotToken: cfg.Telegram.Token,
			Mode:     cfg.Telegram.Mode,
			Endpoint: cfg.Telegram.APIEndpoint,
			Logger:   logger,
		}
		if sendOnly {
			opts.Mode = telegram.ModeSendOnly
		} else if opts.Mode == telegram.ModeWebhook {
			opts.WebhookURL = cfg.Telegram.WebhookURL()
		}
		a, err := telegram.New(opts)
		if err != nil {
			return nil, nil, err
		}
		if opts.Mode == telegram.ModeWebhook {
			return a, a.WebhookHandler(), nil
		}
		return a, nil, nil
	}
}

// newNLU builds the free-text backend.
func newNLU(ctx context.Context, cfg config.NLUConfig) (nlu.Client, error) {
	switch cfg.Backend {
	case config.BackendDialogflow:
		return dialogflow.New(ctx, dialogflow.Opts{
			ProjectID:       cfg.ProjectID,
			CredentialsFile: cfg.CredentialsFile,
		})
	case config.BackendGemini:
		return gemini.New(ctx, gemini.Opts{APIKey: cfg.APIKey, Model: cfg.Model})
	default:
		return nlu.Nop{}, nil
	}
}

func (a *app) newDeliverer(sender telegraph.Sender) (*delivery.Deliverer, error) {
	opts := delivery.DelivererOpts{
		Profiles: a.store,
		Content:  a.store,
		Sender:   sender,
		Logger:   a.logger,
	}
	if a.recorder != nil {
		opts.Recorder = a.recorder
	}
	d, err := delivery.NewDeliverer(opts)
	if err != nil {
		return nil, fmt.Errorf("build deliverer: %w", err)
	}
	return d, nil
}
