package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS comunas (
					id_comuna TEXT PRIMARY KEY,
					nombrecomuna TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS afectados (
					id_afectado TEXT PRIMARY KEY,
					afectado TEXT NOT NULL UNIQUE
				)`,

				`CREATE TABLE IF NOT EXISTS accidentes (
					id_accidente TEXT NOT NULL,
					fecha DATETIME NOT NULL,
					via_1 TEXT,
					barrio TEXT,
					entidad TEXT,
					id_comuna TEXT NOT NULL REFERENCES comunas(id_comuna),
					propietario_de_veh_culo TEXT,
					diurnio_nocturno TEXT,
					hora_restriccion_moto TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS detalle_accidentes (
					id_accidente TEXT NOT NULL,
					id_afectado TEXT NOT NULL REFERENCES afectados(id_afectado),
					cantidad_afectados INTEGER NOT NULL CHECK (cantidad_afectados <> 0)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Index accidents by id, commune and date",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_accidentes_id ON accidentes(id_accidente)`,
				`CREATE INDEX IF NOT EXISTS idx_accidentes_comuna ON accidentes(id_comuna)`,
				`CREATE INDEX IF NOT EXISTS idx_detalle_accidente ON detalle_accidentes(id_accidente)`,
				`CREATE INDEX IF NOT EXISTS idx_accidentes_fecha ON accidentes(fecha)`,
				`CREATE INDEX IF NOT EXISTS idx_detalle_afectado ON detalle_accidentes(id_afectado)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
