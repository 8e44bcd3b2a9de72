// Package export writes the normalized accident data to files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Veraticus/accidentes/internal/model"
)

// DefaultFlatFile is the file name the flat table is written to.
const DefaultFlatFile = "datos_modificados.csv"

// WriteFlatFile writes the normalized accidents as UTF-8 with a byte order mark,
// one header row and no index column.
func WriteFlatFile(w io.Writer, accidents []model.Accident) error {
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)

	if err := cw.Write(model.FlatColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(model.FlatColumns))
	for _, a := range accidents {
		for i, cell := range a.FlatRow() {
			record[i] = model.FormatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write accident %s: %w", a.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return bom.Close()
}

// WriteFlatFileTo creates path and writes the flat table into it.
func WriteFlatFileTo(path string, accidents []model.Accident) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteFlatFile(f, accidents); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFlatFile reads a flat file written by WriteFlatFile, returning the header and rows.
func ReadFlatFile(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("flat file has no header")
	}
	return records[0], records[1:], nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
