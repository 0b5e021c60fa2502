package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/config"
	"github.com/blastkit/blast/pkg/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations against the configured database.

This command applies pending schema changes to the configured database
(SQLite or PostgreSQL). It is required after upgrading blast when schema
changes have been made.

Examples:
  # Run migrations with default config
  blast migrate

  # Run migrations with custom config
  blast migrate --config /etc/blast/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Running database migrations", "type", cfg.Database.Type)

	// Opening the store triggers auto-migration.
	db, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Verify the migration worked by touching the outbox table.
	if _, err := db.CountPendingOutboxEvents(context.Background()); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
