package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/accidentes/internal/common"
)

const clockWidth = len("15:04:05")

// To24Hour converts a 12-hour time with a trailing a/p marker into "HH:MM:SS".
func To24Hour(hora string) (string, error) {
	if len(hora) <= clockWidth || hora[2] != ':' || hora[5] != ':' {
		return "", fmt.Errorf("%w: %q", common.ErrMalformedTime, hora)
	}

	clock := hora[:clockWidth]
	hour, err := strconv.Atoi(clock[:2])
	if err != nil || hour < 0 || hour > 12 {
		return "", fmt.Errorf("%w: hour in %q", common.ErrMalformedTime, hora)
	}

	marker, err := meridiem(hora[clockWidth:])
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, hora)
	}

	switch {
	case marker == 'p' && hour != 12:
		hour += 12
	case marker == 'a' && hour == 12:
		hour = 0
	}

	return fmt.Sprintf("%02d%s", hour, clock[2:]), nil
}

// meridiem returns 'a' or 'p' from the suffix following the clock digits.
func meridiem(suffix string) (byte, error) {
	s := strings.TrimLeft(suffix, " ")
	if s == "" {
		return 0, fmt.Errorf("%w: missing meridiem marker", common.ErrMalformedTime)
	}
	switch m := s[0] | 0x20; m {
	case 'a', 'p':
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unknown meridiem marker %q", common.ErrMalformedTime, s[0])
	}
}

// ComposeTimestamp joins the date part of fecha with a 24-hour clock and parses the result.
// Socrata serves floating timestamps ("2021-01-10T00:00:00.000"); only the date is kept.
func ComposeTimestamp(fecha, clock string) (time.Time, error) {
	date := strings.TrimSpace(fecha)
	if len(date) > len("2006-01-02") {
		date = date[:len("2006-01-02")]
	}

	ts, err := time.Parse("2006-01-02 15:04:05", date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q: %v", common.ErrMalformedDate, fecha, clock, err)
	}
	return ts, nil
}
