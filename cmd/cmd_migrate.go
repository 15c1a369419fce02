package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	db "cropvault-server/internal/db"
	"cropvault-server/internal/migrate"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbConn, err := db.Open(c.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(dbConn); err != nil {
					slog.Error("db close", "error", err)
				}
			}()

			if err := migrate.Run(cmd.Context(), dbConn); err != nil {
				return err
			}
			slog.Info("migrations applied", "sqlitePath", c.cfg.SQLitePath)
			return nil
		},
	}
}
