package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/accidentes/internal/cli"
	"github.com/Veraticus/accidentes/internal/config"
	"github.com/Veraticus/accidentes/internal/storage"
)

const defaultDatabase = "accidentes.db"

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQLite schema",
		Long: `Initialize or update the schema of the SQLite database that
"accidentes run --sqlite" writes to.`,
		RunE: runMigrate,
	}

	// Flags
	cmd.Flags().String("db", "", "database path (default: output.sqlite or accidentes.db)")
	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("output.sqlite")
	}
	if dbPath == "" {
		dbPath = defaultDatabase
	}
	dbPath = config.ExpandPath(dbPath)

	slog.Info("Starting database migration",
		"database", dbPath,
		"status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if status {
		current, versionErr := store.SchemaVersion(ctx)
		if versionErr != nil {
			return versionErr
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%s: schema version %d of %d", dbPath, current, storage.ExpectedSchemaVersion)))
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintln(out, cli.FormatWarning("Pending migrations; run accidentes migrate"))
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s is at schema version %d", dbPath, storage.ExpectedSchemaVersion)))

	return nil
}
