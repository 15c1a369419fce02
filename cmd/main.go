package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cropvault-server/internal/config"
	"cropvault-server/internal/logging"
)

const appName = "cropvault"

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// cli holds the configuration loaded before any command runs.
type cli struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	serve := c.newServeCmd()

	root := &cobra.Command{
		Use:   appName,
		Short: "CropVault - cold storage warehouse dashboard",
		Long: `CropVault serves the warehouse dashboard: live temperature and humidity
readings, alert thresholds, crop suitability and historical statistics.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              serve.RunE,
	}
	root.AddCommand(serve, c.newMigrateCmd(), c.newStatsCmd())
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	c.cfg = cfg

	slog.SetDefault(logging.New(cfg, version, appName))
	slog.Debug("starting",
		"command", cmd.Name(),
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	return nil
}
