// Package model defines the records and tables produced from the accident dataset.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawAccident is one record as served by the open-data endpoint.
// Socrata serializes every value as a string, but numeric encodings are accepted too.
type RawAccident struct {
	Orden           Text  `json:"orden"`
	Fecha           Text  `json:"fecha"`
	Year            Text  `json:"a_o"`
	Month           Text  `json:"mes"`
	Day             Text  `json:"d_a"`
	Hora            Text  `json:"hora"`
	Gravedad        Text  `json:"gravedad"`
	NombreComuna    Text  `json:"nombrecomuna"`
	Peaton          Count `json:"peaton"`
	Automovil       Count `json:"automovil"`
	Campaero        Count `json:"campaero"`
	Camioneta       Count `json:"camioneta"`
	Micro           Count `json:"micro"`
	Buseta          Count `json:"buseta"`
	Bus             Count `json:"bus"`
	Camion          Count `json:"camion"`
	Volqueta        Count `json:"volqueta"`
	Moto            Count `json:"moto"`
	Bicicleta       Count `json:"bicicleta"`
	Otro            Count `json:"otro"`
	Via1            Text  `json:"via_1"`
	Barrio          Text  `json:"barrio"`
	Entidad         Text  `json:"entidad"`
	Propietario     Text  `json:"propietario_de_veh_culo"`
	DiurnoNocturno  Text  `json:"diurnio_nocturno"`
	RestriccionMoto Text  `json:"hora_restriccion_moto"`
}

// Counts returns the per-category counts in affected-party declaration order.
func (r RawAccident) Counts() Counts {
	return Counts{
		int(r.Peaton), int(r.Automovil), int(r.Campaero), int(r.Camioneta),
		int(r.Micro), int(r.Buseta), int(r.Bus), int(r.Camion),
		int(r.Volqueta), int(r.Moto), int(r.Bicicleta), int(r.Otro),
	}
}

// Counts holds one count per affected-party category, indexed like AffectedParties.
type Counts [NumAffectedParties]int

// Accident is a normalized accident record.
type Accident struct {
	Fecha           time.Time
	ID              string
	Day             string
	Severity        string
	Road            string
	Neighborhood    string
	Entity          string
	CommuneID       string
	CommuneName     string
	VehicleOwner    string
	DayNight        string
	MotoRestriction string
	Counts          Counts
}

// Text is a JSON scalar read as a string. Numbers keep their literal form and null is empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*t = Text(n.String())
	return nil
}

// String returns the text value.
func (t Text) String() string {
	return string(t)
}

// ErrInvalidCount is returned when a count column holds a value that is not a whole number.
var ErrInvalidCount = errors.New("invalid count")

// Count is a non-negative category count that may arrive as a JSON string or number.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	s := strings.TrimSpace(string(t))
	if s == "" {
		*c = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*c = Count(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidCount, s, err)
	}
	// "3.0" is accepted; a fraction or a value outside int range is not.
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return fmt.Errorf("%w %q: not an integer", ErrInvalidCount, s)
	}
	*c = Count(f)
	return nil
}
