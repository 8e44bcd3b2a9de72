package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/accidentes/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrUnknownTable = errors.New("unknown table")
	ErrInvalidTable = errors.New("invalid table")
)

// knownTables lists the tables the schema defines, in insert order.
var knownTables = map[string]int{
	model.TableCommunes:        0,
	model.TableAffectedParties: 1,
	model.TableAccidents:       2,
	model.TableDetails:         3,
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTableName ensures the name is one of the schema's tables, since it is
// interpolated into SQL.
func validateTableName(name string) error {
	if _, ok := knownTables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return nil
}

// validateTable checks the table name and that every row matches the header width.
func validateTable(table model.Table) error {
	if err := validateTableName(table.Name); err != nil {
		return err
	}
	if len(table.Header) == 0 {
		return fmt.Errorf("%w: %s has no columns", ErrInvalidTable, table.Name)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Header) {
			return fmt.Errorf("%w: %s row %d has %d cells, want %d",
				ErrInvalidTable, table.Name, i, len(row), len(table.Header))
		}
	}
	return nil
}
