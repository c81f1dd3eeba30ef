package mapping

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone data for minimal container images

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// DefaultTimezone is the canonical wall-clock zone for stored timestamps.
const DefaultTimezone = "America/Chicago"

// US zone abbreviations seen in OddsJam exports.
var zoneAbbrev = map[string]string{
	"EDT": "America/New_York",
	"EST": "America/New_York",
	"ET":  "America/New_York",
	"CDT": "America/Chicago",
	"CST": "America/Chicago",
	"CT":  "America/Chicago",
	"MDT": "America/Denver",
	"MST": "America/Denver",
	"PDT": "America/Los_Angeles",
	"PST": "America/Los_Angeles",
	"GMT": "UTC",
	"UTC": "UTC",
	"Z":   "UTC",
}

var zones = map[string]*time.Location{}

func init() {
	for abbr, name := range zoneAbbrev {
		loc, err := time.LoadLocation(name)
		if err != nil {
			panic(fmt.Sprintf("mapping: load zone %s: %v", name, err))
		}
		zones[abbr] = loc
	}
}

var (
	oddsJamLayouts = []string{
		"01/02/2006, 15:04",
		"01/02/2006, 15:04:05",
		"01/02/2006 15:04",
		"01/02/2006 15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	pikkitLayouts = []string{
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
		"2006-01-02 15:04:05",
	}
)

// splitZone separates a trailing alphabetic zone abbreviation, if any.
func splitZone(s string) (string, string) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	abbr := s[i+1:]
	for _, r := range abbr {
		if r < 'A' || r > 'Z' {
			return s, ""
		}
	}
	return strings.TrimSpace(s[:i]), abbr
}

func parseIn(s string, layouts []string, src *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, src); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseOddsJamTime parses "03/16/2025, 22:13 EDT". The suffix selects the
// source zone; unknown or missing suffixes are read as US Eastern.
func ParseOddsJamTime(raw string, canonical *time.Location) (time.Time, error) {
	return parseTime(raw, oddsJamLayouts, "EDT", canonical)
}

// ParsePikkitTime parses "05/29/2025 21:56:40 GMT". Seconds are dropped.
func ParsePikkitTime(raw string, canonical *time.Location) (time.Time, error) {
	t, err := parseTime(raw, pikkitLayouts, "GMT", canonical)
	if err != nil {
		return t, err
	}
	return t.Truncate(time.Minute), nil
}

func parseTime(raw string, layouts []string, fallbackZone string, canonical *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, domain.ErrMissingField
	}
	body, abbr := splitZone(s)
	src, ok := zones[abbr]
	if !ok {
		src = zones[fallbackZone]
	}
	t, ok := parseIn(body, layouts, src)
	if !ok {
		return time.Time{}, fmt.Errorf("%w %q", domain.ErrInvalidDate, raw)
	}
	return t.In(canonical), nil
}
