package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var slashDateRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)

// Spreadsheet serials count days from 1899-12-30. Serial 1 is 1899-12-31;
// 72999 lands in 2099, the top of the plausible range.
const (
	minSerial = 1
	maxSerial = 72999
)

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate decodes the date representations permit portals emit:
// MM/DD/YYYY or MM/DD/YY text, and bare numeric spreadsheet serials. All
// results are UTC-constructed so "01/03/2025" decodes to the same absolute
// day regardless of the process timezone. Unparseable input returns ok=false,
// never an error.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if m := slashDateRegex.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])

		if len(m[3]) == 2 {
			// Two-digit years: <50 is 2000s, >=50 is 1900s.
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		return makeDate(year, month, day)
	}

	// Bare number: spreadsheet epoch serial.
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return ParseDateSerial(serial)
	}

	return time.Time{}, false
}

// ParseDateSerial decodes a spreadsheet-epoch day serial. Serials outside
// the range mapping to years 1900-2099 are rejected.
func ParseDateSerial(serial float64) (time.Time, bool) {
	if serial < minSerial || serial > maxSerial {
		return time.Time{}, false
	}
	t := serialEpoch.AddDate(0, 0, int(serial))
	if t.Year() < 1900 || t.Year() >= 2100 {
		return time.Time{}, false
	}
	return t, true
}

// makeDate validates month/day/year and builds a UTC midnight date. Go's
// time.Date silently rolls invalid days over (02/30 becomes 03/01), so the
// round-trip is checked explicitly.
func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year >= 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
