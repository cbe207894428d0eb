package core

import "time"

const DayLayout = "2006-01-02"

// Operation dates are limited to four-digit years so every layout used to
// store them stays fixed width.
const (
	MinYear = 1
	MaxYear = 9999
)

// ParseDay parses a YYYY-MM-DD string as midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, BadRequestf("date %q must be in YYYY-MM-DD form", s)
	}
	return t, nil
}
