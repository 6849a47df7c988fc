// Package timeconv converts appliance and user timestamps between ISO-8601
// strings, cluster wall-clock time and epoch milliseconds.
package timeconv

import (
	"fmt"
	"strings"
	"time"

	"rbkoracle/internal/errs"
)

// Layouts accepted for wall-clock input, tried in order.
var layouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DisplayLayout renders the local time with its UTC offset.
const DisplayLayout = "2006-01-02T15:04:05-07:00"

// Parse interprets iso as UTC when it ends in 'Z', as an absolute instant
// when it carries an explicit offset, and otherwise as wall-clock time in loc.
// A wall-clock time skipped by a forward DST transition reads as the
// transition instant, so later wall-clock times never parse earlier.
func Parse(iso string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(iso)
	if s == "" {
		return time.Time{}, errs.Validation("empty timestamp")
	}

	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		loc = time.UTC
		s = s[:len(s)-1]
	} else if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range layouts {
		if t, err := parseWall(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.Validation("cannot parse timestamp %q: expected ISO-8601 such as 2024-01-31T13:45:00", iso)
}

func parseWall(layout, s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return t, err
	}
	wall, err := time.Parse(layout, s)
	if err != nil {
		return t, err
	}
	if !sameClock(t, wall) {
		// t lands before the gap; the zone it is in ends at the transition.
		_, end := t.ZoneBounds()
		return end, nil
	}
	return t, nil
}

func sameClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ah, amin, as := a.Clock()
	bh, bmin, bs := b.Clock()
	return ay == by && am == bm && ad == bd && ah == bh && amin == bmin && as == bs
}

// ToEpochMillis converts iso to whole epoch seconds times 1000.
func ToEpochMillis(iso, timezone string) (int64, error) {
	loc, err := Location(timezone)
	if err != nil {
		return 0, err
	}
	return EpochMillisIn(iso, loc)
}

// EpochMillisIn is ToEpochMillis with an already loaded location.
func EpochMillisIn(iso string, loc *time.Location) (int64, error) {
	t, err := Parse(iso, loc)
	if err != nil {
		return 0, err
	}
	return t.Unix() * 1000, nil
}

// ToLocalDisplay renders iso in timezone with the zone's offset.
func ToLocalDisplay(iso, timezone string) (string, error) {
	loc, err := Location(timezone)
	if err != nil {
		return "", err
	}
	return LocalDisplayIn(iso, loc)
}

// LocalDisplayIn is ToLocalDisplay with an already loaded location.
func LocalDisplayIn(iso string, loc *time.Location) (string, error) {
	t, err := Parse(iso, loc)
	if err != nil {
		return "", err
	}
	return Format(t.In(loc)), nil
}

// Format renders t like Python's isoformat: microseconds only when non-zero.
func Format(t time.Time) string {
	if t.Nanosecond()/1000 != 0 {
		return t.Format("2006-01-02T15:04:05.000000-07:00")
	}
	return t.Format(DisplayLayout)
}

// Wall renders iso in loc without offset, for tables.
func Wall(iso string, loc *time.Location) string {
	if iso == "" {
		return ""
	}
	t, err := Parse(iso, loc)
	if err != nil {
		return iso
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

// FromEpochMillis renders epoch milliseconds in loc.
func FromEpochMillis(ms int64, loc *time.Location) string {
	return Format(time.UnixMilli(ms).In(loc))
}

// Location loads an IANA zone.
func Location(timezone string) (*time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errs.Config("unknown timezone %q: %v", timezone, err)
	}
	return loc, nil
}

// Describe formats a millisecond recovery point for log lines.
func Describe(ms int64, loc *time.Location) string {
	return fmt.Sprintf("%s (%d)", FromEpochMillis(ms, loc), ms)
}
