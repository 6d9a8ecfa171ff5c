package importer

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first comes before month-first on
// purpose: merchant exports in this market are predominantly DD/MM/YYYY, so
// an ambiguous value like 03/04/2025 resolves day-first.
var dateLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"2006-01-02",
}

const (
	serialFloor = 30000
	serialCeil  = 70000
)

// excelEpoch is the day-zero of the spreadsheet serial date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// TryParseDate attempts the known date formats against a raw cell value and
// returns the parsed calendar date, or ok=false when nothing matches.
func TryParseDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
	}

	// Numeric serial fallback for cells that Excel stored as day counts.
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err == nil && serial > serialFloor && serial < serialCeil {
		return excelEpoch.AddDate(0, 0, int(serial)), true
	}

	return time.Time{}, false
}

// daysBetween is the signed calendar-day distance from a reference date to a
// target date, ignoring time of day.
func daysBetween(reference, target time.Time) int {
	ref := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, time.UTC)
	tgt := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return int(tgt.Sub(ref).Hours() / 24)
}
