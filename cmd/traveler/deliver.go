package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/traveler/internal/delivery"
)

func newDeliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deliver",
		Short: "Run one delivery pass now",
		Long:  "Sends every registered user their next unseen article, exactly as the daily schedule would.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDeliver(ctx, cmd)
		},
	}
}

func runDeliver(ctx context.Context, cmd *cobra.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	adapter, _, err := newAdapter(a.cfg, a.logger.Named("telegraph"), true)
	if err != nil {
		return err
	}
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer adapter.Close()

	deliverer, err := a.newDeliverer(adapter)
	if err != nil {
		return err
	}
	res, err := deliverer.RunPass(ctx, delivery.TriggerCLI)
	if res != nil {
		printResult(cmd.OutOrStdout(), res)
	}
	return err
}

func printResult(out io.Writer, res *delivery.Result) {
	fmt.Fprintf(out, "Run %s %s: %d profiles, %d delivered, %d without articles, %d failed (%s)\n",
		res.RunID, res.Status, res.Profiles, res.Delivered, res.NoArticles, res.Failed,
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	if res.Err != "" {
		fmt.Fprintf(out, "Error: %s\n", res.Err)
	}
}
