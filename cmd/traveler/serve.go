package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/traveler/internal/bot"
	"github.com/zulandar/traveler/internal/delivery"
	"github.com/zulandar/traveler/internal/onboarding"
	"github.com/zulandar/traveler/internal/web"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long: `Connects to the configured chat platform, answers users through the
onboarding dialog and runs the daily delivery schedule. Also serves the
webhook (in webhook mode), /healthz and the admin endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	adapter, webhook, err := newAdapter(cfg, logger.Named("telegraph"), false)
	if err != nil {
		return err
	}
	client, err := newNLU(ctx, cfg.NLU)
	if err != nil {
		return fmt.Errorf("build nlu: %w", err)
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}

	machine, err := onboarding.NewMachine(onboarding.MachineOpts{
		Profiles:    a.store,
		NLU:         client,
		Sessions:    a.sessions,
		Sender:      adapter,
		SearchPause: cfg.Onboarding.SearchPause,
		Logger:      logger.Named("onboarding"),
	})
	if err != nil {
		return err
	}

	deliverer, err := a.newDeliverer(adapter)
	if err != nil {
		return err
	}
	scheduler, err := delivery.NewScheduler(delivery.SchedulerOpts{
		Deliverer:    deliverer,
		Schedule:     cfg.Delivery.Schedule,
		PollInterval: cfg.Delivery.PollInterval,
		Logger:       logger.Named("delivery"),
	})
	if err != nil {
		return err
	}

	srvOpts := web.ServerOpts{
		Port:        cfg.HTTP.Port,
		WebhookPath: cfg.Telegram.WebhookPath,
		Webhook:     webhook,
		Passes:      scheduler,
		AdminToken:  cfg.HTTP.AdminToken,
		Logger:      logger.Named("web"),
	}
	if a.sql != nil {
		srvOpts.Runs = a.sql
	}
	server, err := web.New(srvOpts)
	if err != nil {
		return err
	}

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		Adapter:      adapter,
		Conversation: machine,
		Services:     []bot.Service{scheduler, server},
		Logger:       logger.Named("bot"),
	})
	if err != nil {
		return err
	}

	logger.Info("traveler starting",
		zap.String("version", Version),
		zap.String("platform", cfg.Platform),
		zap.String("store", cfg.Store.Backend),
		zap.String("nlu", cfg.NLU.Backend),
		zap.Time("next_delivery", scheduler.Next()))
	return daemon.Run(ctx)
}
