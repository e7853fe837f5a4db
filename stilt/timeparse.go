package stilt

import (
	"fmt"
	"time"
)

// Slots is the STILT 3-hourly slot grid.
var Slots = []int{0, 3, 6, 9, 12, 15, 18, 21}

// SlotInterval separates consecutive slots.
const SlotInterval = 3 * time.Hour

// dateLayouts are the string forms the permissive parser accepts.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	time.RFC3339,
}

// ParseDate permissively parses a date given as a string, a numeric Unix
// timestamp in seconds, or a time.Time. Results are in UTC.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", d)
	case int:
		return time.Unix(int64(d), 0).UTC(), nil
	case int64:
		return time.Unix(d, 0).UTC(), nil
	case float64:
		return time.Unix(int64(d), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v (%T)", v, v)
	}
}

// Slot maps an hour in [0,24) onto the greatest slot not after it.
func Slot(hour int) int {
	return 3 * (hour / 3)
}

// NormalizeHours maps hour inputs (integers or "HH:MM" strings) onto the
// slot grid, collapsing duplicates and sorting ascending. Empty input
// selects all slots.
func NormalizeHours(hours []any) ([]int, error) {
	if len(hours) == 0 {
		return append([]int(nil), Slots...), nil
	}

	seen := make(map[int]bool)
	for _, h := range hours {
		hour, err := parseHour(h)
		if err != nil {
			return nil, err
		}
		seen[Slot(hour)] = true
	}

	out := make([]int, 0, len(seen))
	for _, s := range Slots {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

func parseHour(v any) (int, error) {
	switch h := v.(type) {
	case int:
		if h < 0 || h >= 24 {
			return 0, fmt.Errorf("hour %d out of range", h)
		}
		return h, nil
	case float64:
		return parseHour(int(h))
	case string:
		var hour, minute int
		if _, err := fmt.Sscanf(h, "%d:%d", &hour, &minute); err == nil {
			return parseHour(hour)
		}
		var bare int
		if _, err := fmt.Sscanf(h, "%d", &bare); err == nil {
			return parseHour(bare)
		}
		return 0, fmt.Errorf("unparseable hour %q", h)
	default:
		return 0, fmt.Errorf("unsupported hour value %v (%T)", v, v)
	}
}

// slotTimes returns all 3-hourly timestamps within [from, to], inclusive.
func slotTimes(from, to time.Time) []time.Time {
	start := time.Date(from.Year(), from.Month(), from.Day(), Slot(from.Hour()), 0, 0, 0, time.UTC)
	if start.Before(from) {
		start = start.Add(SlotInterval)
	}
	var out []time.Time
	for t := start; !t.After(to); t = t.Add(SlotInterval) {
		out = append(out, t)
	}
	return out
}
