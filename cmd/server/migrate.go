package main

import (
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables (postgres) or indexes (mongo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup()
			cfg := config.Load()

			switch cfg.StoreDriver {
			case "postgres":
				if err := database.Connect(cfg); err != nil {
					return err
				}
				defer database.Close()
				if err := database.Migrate(database.DB); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			case "mongo":
				client, err := database.ConnectMongo(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer client.Disconnect(cmd.Context())
				if err := store.NewMongoStore(client.Database(cfg.MongoDatabase)).EnsureIndexes(cmd.Context()); err != nil {
					return fmt.Errorf("index creation failed: %w", err)
				}
			default:
				return fmt.Errorf("nothing to migrate for store driver %q", cfg.StoreDriver)
			}
			slog.Info("migration completed", "driver", cfg.StoreDriver)
			return nil
		},
	}
}
