package transform

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/model"
)

// dayPrefixWidth is the width of the ordinal prefix on day labels ("01. ").
const dayPrefixWidth = 4

// Normalize converts raw records into accidents, preserving input order.
// It stops at the first record that cannot be normalized.
func Normalize(raw []model.RawAccident) ([]model.Accident, error) {
	accidents := make([]model.Accident, 0, len(raw))
	for i, r := range raw {
		a, err := NormalizeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("normalizing record at index %d: %w", i, err)
		}
		accidents = append(accidents, a)
	}

	slog.Debug("Normalized accident records", "count", len(accidents))
	return accidents, nil
}

// NormalizeRecord converts one raw record.
func NormalizeRecord(r model.RawAccident) (model.Accident, error) {
	id := strings.TrimSpace(r.Orden.String())

	clock, err := To24Hour(r.Hora.String())
	if err != nil {
		return model.Accident{}, &common.RecordError{RecordID: id, Field: "hora", Err: err}
	}

	fecha, err := ComposeTimestamp(r.Fecha.String(), clock)
	if err != nil {
		return model.Accident{}, &common.RecordError{RecordID: id, Field: "fecha", Err: err}
	}

	commune, err := SplitCommune(r.NombreComuna.String())
	if err != nil {
		return model.Accident{}, &common.RecordError{RecordID: id, Field: "nombrecomuna", Err: err}
	}

	return model.Accident{
		ID:              id,
		Fecha:           fecha,
		Day:             TrimDayLabel(r.Day.String()),
		Severity:        r.Gravedad.String(),
		Counts:          r.Counts(),
		Road:            r.Via1.String(),
		Neighborhood:    r.Barrio.String(),
		Entity:          r.Entidad.String(),
		CommuneID:       commune.ID,
		CommuneName:     commune.Name,
		VehicleOwner:    r.Propietario.String(),
		DayNight:        r.DiurnoNocturno.String(),
		MotoRestriction: r.RestriccionMoto.String(),
	}, nil
}

// TrimDayLabel drops the ordinal prefix from a day label ("01. LUNES" -> "LUNES").
// Labels shorter than the prefix become empty.
func TrimDayLabel(day string) string {
	if len(day) < dayPrefixWidth {
		return ""
	}
	return day[dayPrefixWidth:]
}
