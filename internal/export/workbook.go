package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/accidentes/internal/model"
)

// DefaultWorkbook is the file name the four tables are written to.
const DefaultWorkbook = "tablas.xlsx"

// timestampFormat is the custom number format applied to timestamp cells.
const timestampFormat = "yyyy-mm-dd hh:mm:ss"

// WriteWorkbook writes one sheet per table, in the order given, with a header row
// and no index column.
func WriteWorkbook(path string, tables []model.Table) (err error) {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to write")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	format := timestampFormat
	tsStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return fmt.Errorf("failed to create timestamp style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, table := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, table.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", table.Name, err)
			}
		} else if _, err := f.NewSheet(table.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", table.Name, err)
		}

		if err := writeSheet(f, table, tsStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, table model.Table, tsStyle int) error {
	sw, err := f.NewStreamWriter(table.Name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", table.Name, err)
	}

	header := make([]any, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", table.Name, err)
	}

	for r, row := range table.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			if ts, ok := v.(time.Time); ok {
				cells[i] = excelize.Cell{StyleID: tsStyle, Value: ts}
				continue
			}
			cells[i] = v
		}

		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", table.Name, r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", table.Name, err)
	}
	return nil
}
