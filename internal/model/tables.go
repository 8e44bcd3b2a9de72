package model

import (
	"fmt"
	"strconv"
	"time"
)

// Sheet and table names, in export order.
const (
	TableAccidents       = "accidentes"
	TableAffectedParties = "afectados"
	TableDetails         = "detalle_accidentes"
	TableCommunes        = "comunas"
)

// FlatColumns is the column order of the normalized flat table.
var FlatColumns = []string{
	"id_accidente", "fecha", "d_a", "gravedad",
	"peaton", "automovil", "campaero", "camioneta", "micro", "buseta",
	"bus", "camion", "volqueta", "moto", "bicicleta", "otro",
	"via_1", "barrio", "entidad", "id_comuna", "nombrecomuna",
	"propietario_de_veh_culo", "diurnio_nocturno", "hora_restriccion_moto",
}

// Column headers of the four normalized tables.
var (
	AccidentColumns = []string{
		"id_accidente", "fecha", "via_1", "barrio", "entidad", "id_comuna",
		"propietario_de_veh_culo", "diurnio_nocturno", "hora_restriccion_moto",
	}
	AffectedPartyColumns = []string{"id_afectado", "afectado"}
	DetailColumns        = []string{"id_accidente", "id_afectado", "cantidad_afectados"}
	CommuneColumns       = []string{"id_comuna", "nombrecomuna"}
)

// Tables is the reshaped output of one run.
type Tables struct {
	Accidents       []Accident
	AffectedParties []AffectedParty
	Details         []AccidentDetail
	Communes        []Commune
}

// Table is a named header plus typed rows, ready for a writer.
// Cell values are string, int, or time.Time.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// List returns the four tables in export order.
func (t Tables) List() []Table {
	accidents := Table{Name: TableAccidents, Header: AccidentColumns, Rows: make([][]any, 0, len(t.Accidents))}
	for _, a := range t.Accidents {
		accidents.Rows = append(accidents.Rows, []any{
			IDValue(a.ID), a.Fecha, a.Road, a.Neighborhood, a.Entity, a.CommuneID,
			a.VehicleOwner, a.DayNight, a.MotoRestriction,
		})
	}

	parties := Table{Name: TableAffectedParties, Header: AffectedPartyColumns, Rows: make([][]any, 0, len(t.AffectedParties))}
	for _, p := range t.AffectedParties {
		parties.Rows = append(parties.Rows, []any{p.ID, p.Name})
	}

	details := Table{Name: TableDetails, Header: DetailColumns, Rows: make([][]any, 0, len(t.Details))}
	for _, d := range t.Details {
		details.Rows = append(details.Rows, []any{IDValue(d.AccidentID), d.AffectedPartyID, d.Count})
	}

	communes := Table{Name: TableCommunes, Header: CommuneColumns, Rows: make([][]any, 0, len(t.Communes))}
	for _, c := range t.Communes {
		communes.Rows = append(communes.Rows, []any{c.ID, c.Name})
	}

	return []Table{accidents, parties, details, communes}
}

// FlatRow returns the accident as a row of FlatColumns.
func (a Accident) FlatRow() []any {
	row := make([]any, 0, len(FlatColumns))
	row = append(row, IDValue(a.ID), a.Fecha, a.Day, a.Severity)
	for _, n := range a.Counts {
		row = append(row, n)
	}
	return append(row,
		a.Road, a.Neighborhood, a.Entity, a.CommuneID, a.CommuneName,
		a.VehicleOwner, a.DayNight, a.MotoRestriction,
	)
}

// IDValue returns the accident id as an int when it is numeric so writers emit a number cell.
func IDValue(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}

// TimestampLayout is how composed accident timestamps are rendered as text.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatCell renders a cell value as text.
func FormatCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case int:
		return strconv.Itoa(c)
	case time.Time:
		return c.Format(TimestampLayout)
	case nil:
		return ""
	default:
		return fmt.Sprint(c)
	}
}
