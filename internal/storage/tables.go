package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/model"
)

// SaveTables inserts the normalized tables in a single transaction. Parent tables are
// written before the tables that reference them, whatever order they are given in.
// A database that already holds accidents is rejected rather than appended to.
func (s *SQLiteStorage) SaveTables(ctx context.Context, tables []model.Table) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for _, table := range tables {
		if err := validateTable(table); err != nil {
			return err
		}
	}

	existing, err := s.CountRows(ctx, model.TableAccidents)
	if err != nil {
		return err
	}
	if existing > 0 {
		return fmt.Errorf("%w: %s already holds %d rows", common.ErrDuplicateEntry, model.TableAccidents, existing)
	}

	ordered := make([]model.Table, len(tables))
	copy(ordered, tables)
	sort.SliceStable(ordered, func(i, j int) bool {
		return knownTables[ordered[i].Name] < knownTables[ordered[j].Name]
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range ordered {
		query := insertQuery(table)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert into %s: %w", table.Name, err)
		}

		for i, row := range table.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("failed to insert %s row %d: %w", table.Name, i, err)
			}
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("failed to close insert statement: %w", err)
		}

		slog.Debug("Stored table", "table", table.Name, "rows", len(table.Rows))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tables: %w", err)
	}
	return nil
}

// CountRows returns the number of rows in one of the schema's tables.
func (s *SQLiteStorage) CountRows(ctx context.Context, table string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTableName(table); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// AccidentsByCommune returns the number of stored accidents per commune name.
func (s *SQLiteStorage) AccidentsByCommune(ctx context.Context) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.nombrecomuna, COUNT(*)
		FROM accidentes a
		JOIN comunas c ON c.id_comuna = a.id_comuna
		GROUP BY c.nombrecomuna`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accidents by commune: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan commune count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

func insertQuery(table model.Table) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.Header)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(table.Header, ", "), placeholders)
}
