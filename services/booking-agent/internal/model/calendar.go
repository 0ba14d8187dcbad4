package model

import "time"

type DayStatus string

const (
	DayAvailable   DayStatus = "available"
	DayUnavailable DayStatus = "unavailable"
)

type SpotStatus string

const (
	SpotAvailable SpotStatus = "available"
	SpotBooked    SpotStatus = "booked"
)

// Spot is a single instant at which a meeting could start.
type Spot struct {
	Start             time.Time  `json:"start_time"`
	Status            SpotStatus `json:"status"`
	InviteesRemaining int        `json:"invitees_remaining"`
}

func (s Spot) Bookable() bool {
	return s.Status == SpotAvailable && s.InviteesRemaining > 0
}

// Day is a civil date with its status and spots. Date carries only year/month/day;
// its location is the calendar's zone.
type Day struct {
	Date   time.Time `json:"date"`
	Status DayStatus `json:"status"`
	Spots  []Spot    `json:"spots"`
}

// Calendar is the shape shared by the mock and provider calendars.
type Calendar struct {
	Timezone string `json:"timezone"`
	Days     []Day  `json:"days"`
}

// BookableSpots returns every bookable spot across all available days, in calendar order.
func (c Calendar) BookableSpots() []Spot {
	var out []Spot
	for _, d := range c.Days {
		if d.Status != DayAvailable {
			continue
		}
		for _, s := range d.Spots {
			if s.Bookable() {
				out = append(out, s)
			}
		}
	}
	return out
}

type MockCalendar struct {
	Calendar
	WeekOf time.Time `json:"week_of"`
}

type ProviderCalendar struct {
	Calendar
}

// FreeRange is a human-facing [Start, End) block of contiguous free spots.
type FreeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeRanges coalesces consecutive spots spaced exactly step apart into ranges.
// It is a presentation helper; matching always uses the discrete spots.
func FreeRanges(d Day, step time.Duration) []FreeRange {
	var out []FreeRange
	for _, s := range d.Spots {
		if !s.Bookable() {
			continue
		}
		if n := len(out); n > 0 && out[n-1].End.Equal(s.Start) {
			out[n-1].End = s.Start.Add(step)
			continue
		}
		out = append(out, FreeRange{Start: s.Start, End: s.Start.Add(step)})
	}
	return out
}

// UnifiedDay groups time-of-day strings ("02:00 PM") under a display date ("March 10, 2025").
type UnifiedDay struct {
	Date           string   `json:"date"`
	DayOfWeek      string   `json:"day_of_week"`
	AvailableTimes []string `json:"available_times"`
}

type UnifiedCalendar struct {
	Timezone      string       `json:"timezone"`
	AvailableDays []UnifiedDay `json:"available_days"`
}

// OverlapResult has the unified shape but only holds slots present in both inputs.
type OverlapResult = UnifiedCalendar

func (u UnifiedCalendar) Empty() bool {
	for _, d := range u.AvailableDays {
		if len(d.AvailableTimes) > 0 {
			return false
		}
	}
	return true
}

func (u UnifiedCalendar) SlotCount() int {
	n := 0
	for _, d := range u.AvailableDays {
		n += len(d.AvailableTimes)
	}
	return n
}
