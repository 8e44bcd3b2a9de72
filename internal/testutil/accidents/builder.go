// Package accidents provides a fluent builder for raw accident fixtures.
//
// Example usage:
//
//	raw := accidents.NewBuilder(t).
//		WithAccident(accidents.ID("1"), accidents.Count("moto", 1)).
//		WithSample().
//		Build()
package accidents

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Veraticus/accidentes/internal/model"
)

// Option customizes one raw accident.
type Option func(t *testing.T, r *model.RawAccident)

// Builder accumulates raw accident records for a test.
type Builder struct {
	t       *testing.T
	records []model.RawAccident
	nextID  int
}

// NewBuilder creates an empty builder bound to t.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t, nextID: 1}
}

// Default returns a well-formed record with every count at zero.
func Default(id string) model.RawAccident {
	return model.RawAccident{
		Orden:           model.Text(id),
		Fecha:           "2021-01-10T00:00:00.000",
		Year:            "2021",
		Month:           "01. ENERO",
		Day:             "07. DOMINGO",
		Hora:            "07:05:00 a. m.",
		Gravedad:        "SOLO DAÑOS",
		NombreComuna:    "05. SUAREZ",
		Via1:            "CARRERA 15",
		Barrio:          "SAN FRANCISCO",
		Entidad:         "DTB",
		Propietario:     "PARTICULAR",
		DiurnoNocturno:  "DIURNO",
		RestriccionMoto: "NO",
	}
}

// WithAccident appends a record built from Default with the given options applied.
func (b *Builder) WithAccident(opts ...Option) *Builder {
	b.t.Helper()
	r := Default(fmt.Sprintf("%d", b.nextID))
	b.nextID++
	for _, opt := range opts {
		opt(b.t, &r)
	}
	b.records = append(b.records, r)
	return b
}

// WithSample appends four records covering both remapped commune labels,
// both meridiem markers, and multi-category accidents.
func (b *Builder) WithSample() *Builder {
	b.t.Helper()
	return b.
		WithAccident(Hora("01:15:30 p. m."), Count("moto", 1)).
		WithAccident(Hora("12:40:00 a. m."), Commune("SIN INFORMACION"), Count("automovil", 2), Count("peaton", 1)).
		WithAccident(Hora("12:15:30 p. m."), Commune("FLORIDABLANCA"), Count("bus", 1), Count("moto", 2)).
		WithAccident(Hora("11:59:59 p. m."), Commune("05. SUAREZ"))
}

// Build returns the accumulated records.
func (b *Builder) Build() []model.RawAccident {
	out := make([]model.RawAccident, len(b.records))
	copy(out, b.records)
	return out
}

// JSON returns the records encoded the way the open-data endpoint serves them.
func (b *Builder) JSON() []byte {
	b.t.Helper()
	rows := make([]map[string]string, 0, len(b.records))
	for _, r := range b.records {
		row := map[string]string{
			"orden":                   r.Orden.String(),
			"fecha":                   r.Fecha.String(),
			"a_o":                     r.Year.String(),
			"mes":                     r.Month.String(),
			"d_a":                     r.Day.String(),
			"hora":                    r.Hora.String(),
			"gravedad":                r.Gravedad.String(),
			"nombrecomuna":            r.NombreComuna.String(),
			"via_1":                   r.Via1.String(),
			"barrio":                  r.Barrio.String(),
			"entidad":                 r.Entidad.String(),
			"propietario_de_veh_culo": r.Propietario.String(),
			"diurnio_nocturno":        r.DiurnoNocturno.String(),
			"hora_restriccion_moto":   r.RestriccionMoto.String(),
		}
		for i, n := range r.Counts() {
			row[model.AffectedParties[i].Name] = fmt.Sprintf("%d", n)
		}
		rows = append(rows, row)
	}

	data, err := json.Marshal(rows)
	if err != nil {
		b.t.Fatalf("failed to encode fixtures: %v", err)
	}
	return data
}

// ID sets the record id.
func ID(id string) Option {
	return func(_ *testing.T, r *model.RawAccident) { r.Orden = model.Text(id) }
}

// Fecha sets the raw date.
func Fecha(fecha string) Option {
	return func(_ *testing.T, r *model.RawAccident) { r.Fecha = model.Text(fecha) }
}

// Hora sets the raw 12-hour time.
func Hora(hora string) Option {
	return func(_ *testing.T, r *model.RawAccident) { r.Hora = model.Text(hora) }
}

// Commune sets the raw commune label.
func Commune(label string) Option {
	return func(_ *testing.T, r *model.RawAccident) { r.NombreComuna = model.Text(label) }
}

// Count sets the count of one affected-party column by name.
func Count(name string, n int) Option {
	return func(t *testing.T, r *model.RawAccident) {
		t.Helper()
		c := model.Count(n)
		switch name {
		case "peaton":
			r.Peaton = c
		case "automovil":
			r.Automovil = c
		case "campaero":
			r.Campaero = c
		case "camioneta":
			r.Camioneta = c
		case "micro":
			r.Micro = c
		case "buseta":
			r.Buseta = c
		case "bus":
			r.Bus = c
		case "camion":
			r.Camion = c
		case "volqueta":
			r.Volqueta = c
		case "moto":
			r.Moto = c
		case "bicicleta":
			r.Bicicleta = c
		case "otro":
			r.Otro = c
		default:
			t.Fatalf("unknown affected-party column %q", name)
		}
	}
}
