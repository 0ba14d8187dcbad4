// Package candidate turns an overlap into concrete bookable instants and booking URLs.
package candidate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

var ErrNoCandidates = errors.New("no candidate slots")

type Candidate struct {
	At        time.Time `json:"at"`
	Date      string    `json:"date"`
	DayOfWeek string    `json:"day_of_week"`
	Time      string    `json:"time"`
}

func (c Candidate) ISO() string {
	return c.At.Format(time.RFC3339)
}

// Label is the human form, e.g. "Monday, March 10, 2025 at 02:00 PM".
func (c Candidate) Label() string {
	return fmt.Sprintf("%s, %s at %s", c.DayOfWeek, c.Date, c.Time)
}

// List rebuilds every overlap slot as an instant in the overlap's zone, earliest first.
func List(overlap model.OverlapResult) ([]Candidate, error) {
	loc, err := availability.LoadZone(overlap.Timezone)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, d := range overlap.AvailableDays {
		for _, tod := range d.AvailableTimes {
			at, err := availability.SlotInstant(d.Date, tod, loc)
			if err != nil {
				return nil, err
			}
			dow := d.DayOfWeek
			if dow == "" {
				dow = at.Weekday().String()
			}
			out = append(out, Candidate{At: at, Date: d.Date, DayOfWeek: dow, Time: tod})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// Format renders one line per candidate for the slot-selection prompt.
func Format(cands []Candidate) string {
	var b strings.Builder
	for i, c := range cands {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%s)", c.Label(), c.ISO())
	}
	return b.String()
}

// Resolve maps a suggested instant (optionally followed by "?month=...&date=...") onto a
// candidate. When nothing matches, the earliest candidate is returned with fellBack set.
func Resolve(suggestion string, cands []Candidate) (Candidate, bool, error) {
	if len(cands) == 0 {
		return Candidate{}, false, ErrNoCandidates
	}
	earliest := cands[0]
	for _, c := range cands[1:] {
		if c.At.Before(earliest.At) {
			earliest = c
		}
	}

	at, ok := ParseSuggestion(suggestion)
	if !ok {
		return earliest, true, nil
	}
	for _, c := range cands {
		if c.At.Equal(at) {
			return c, false, nil
		}
	}
	return earliest, true, nil
}

// ParseSuggestion extracts the RFC 3339 instant from a selector answer.
func ParseSuggestion(s string) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}
