package source

import (
	"fmt"
	"time"
)

var spanishMonths = [...]string{
	"ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO",
	"JULIO", "AGOSTO", "SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

// MonthLabel renders the month tag the views are keyed by, e.g. "AGOSTO 2026".
// The instant is shifted into the source's timezone first: near a month
// boundary the process's UTC clock can already be in the wrong month.
func MonthLabel(t time.Time, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", tz, err)
	}
	local := t.In(loc)
	return fmt.Sprintf("%s %d", spanishMonths[local.Month()-1], local.Year()), nil
}
