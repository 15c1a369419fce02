package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"cropvault-server/internal/app"
)

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long:  `Start the HTTP dashboard, connect to the MQTT broker and fetch the initial statistics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.Info("starting", "app", appName, "version", version)
			err := app.Run(cmd.Context(), c.cfg)
			slog.Info("shutting down")
			return err
		},
	}
}
