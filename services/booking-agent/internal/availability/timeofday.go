package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Display layouts of the unified representation.
const (
	DateLayout    = "January 02, 2006"
	TimeLayout    = "03:04 PM"
	weekdayLayout = "Monday"
)

var ErrUnknownTimezone = errors.New("unknown timezone")

// LoadZone resolves an IANA zone name. An empty or unrecognized name is an error; callers
// must never fall back to UTC silently.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", ErrUnknownTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownTimezone, name, err)
	}
	return loc, nil
}

// ParseTimeOfDay parses "02:00 PM" into minutes since midnight.
func ParseTimeOfDay(s string) (int, bool) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// ParseDate parses a unified display date ("March 10, 2025").
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SlotInstant rebuilds the absolute instant of a unified (date, time-of-day) pair in loc.
func SlotInstant(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(timeOfDay), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %q %q: %w", date, timeOfDay, err)
	}
	return t, nil
}

// sortTimesOfDay orders time strings chronologically; unparseable values go last.
func sortTimesOfDay(times []string) {
	sort.SliceStable(times, func(i, j int) bool {
		a, okA := ParseTimeOfDay(times[i])
		b, okB := ParseTimeOfDay(times[j])
		switch {
		case okA && okB:
			return a < b
		case okA != okB:
			return okA
		default:
			return times[i] < times[j]
		}
	})
}

type datedKey struct {
	label string
	date  time.Time
	ok    bool
}

func lessDate(a, b datedKey) bool {
	switch {
	case a.ok && b.ok:
		return a.date.Before(b.date)
	case a.ok != b.ok:
		return a.ok
	default:
		return a.label < b.label
	}
}
