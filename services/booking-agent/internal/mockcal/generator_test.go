package mockcal

import (
	"math/rand"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

func fixedGenerator(t *testing.T, seed int64, opts ...Option) *Generator {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	// Wednesday; the window runs Thursday through the following Wednesday.
	now := time.Date(2025, 3, 5, 15, 4, 0, 0, loc)
	base := []Option{WithClock(func() time.Time { return now }), WithRand(rand.New(rand.NewSource(seed)))}
	return New(loc, append(base, opts...)...)
}

func TestGenerate_WindowStartsTomorrow(t *testing.T) {
	cal := fixedGenerator(t, 1).Generate()

	if len(cal.Days) != DefaultDays {
		t.Fatalf("expected %d days, got %d", DefaultDays, len(cal.Days))
	}
	if got := cal.Days[0].Date.Format("2006-01-02"); got != "2025-03-06" {
		t.Fatalf("expected first day 2025-03-06, got %s", got)
	}
	if cal.Timezone != "America/Los_Angeles" {
		t.Fatalf("unexpected timezone %q", cal.Timezone)
	}
	for i := 1; i < len(cal.Days); i++ {
		if got := cal.Days[i].Date.Sub(cal.Days[i-1].Date); got < 23*time.Hour || got > 25*time.Hour {
			t.Fatalf("days %d and %d are not contiguous: %s", i-1, i, got)
		}
	}
}

func TestGenerate_WeekendsUnavailable(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		cal := fixedGenerator(t, seed).Generate()
		for _, d := range cal.Days {
			wd := d.Date.Weekday()
			if wd != time.Saturday && wd != time.Sunday {
				continue
			}
			if d.Status != model.DayUnavailable || len(d.Spots) != 0 {
				t.Fatalf("seed %d: weekend %s should be unavailable with no spots, got %s/%d", seed, d.Date, d.Status, len(d.Spots))
			}
		}
	}
}

func TestGenerate_SpotsWithinBusinessHours(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		cal := fixedGenerator(t, seed).Generate()
		for _, d := range cal.Days {
			if d.Status == model.DayUnavailable && len(d.Spots) != 0 {
				t.Fatalf("seed %d: unavailable day %s has spots", seed, d.Date)
			}
			for _, s := range d.Spots {
				h, m := s.Start.Hour(), s.Start.Minute()
				if h < DefaultBusinessStart || h >= DefaultBusinessEnd {
					t.Fatalf("seed %d: spot %s outside business hours", seed, s.Start)
				}
				if m != 0 && m != 30 {
					t.Fatalf("seed %d: spot %s not on a 30-minute tick", seed, s.Start)
				}
				if !s.Bookable() {
					t.Fatalf("seed %d: spot %s should be bookable", seed, s.Start)
				}
			}
		}
	}
}

func TestGenerate_RemovesBusyBlocks(t *testing.T) {
	ticks := (DefaultBusinessEnd - DefaultBusinessStart) * 2
	for seed := int64(0); seed < 50; seed++ {
		cal := fixedGenerator(t, seed).Generate()
		for _, d := range cal.Days {
			if d.Status != model.DayAvailable {
				continue
			}
			removed := ticks - len(d.Spots)
			// 3-5 blocks of one or two ticks each; overlapping blocks may share ticks.
			if removed < 2 || removed > 10 {
				t.Fatalf("seed %d: %s removed %d ticks", seed, d.Date, removed)
			}
		}
	}
}

func TestGenerate_IsDeterministicForSeed(t *testing.T) {
	a := fixedGenerator(t, 42).Generate()
	b := fixedGenerator(t, 42).Generate()
	if len(a.BookableSpots()) != len(b.BookableSpots()) {
		t.Fatalf("same seed produced different calendars")
	}
	for i, s := range a.BookableSpots() {
		if !s.Start.Equal(b.BookableSpots()[i].Start) {
			t.Fatalf("spot %d differs: %s vs %s", i, s.Start, b.BookableSpots()[i].Start)
		}
	}
}

func TestGenerate_NoWeekdaysIsEmpty(t *testing.T) {
	loc := time.UTC
	// Friday anchor with a two-day window covers only the weekend.
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)
	cal := New(loc, WithClock(func() time.Time { return now }), WithDays(2)).Generate()

	if len(cal.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(cal.Days))
	}
	if n := len(cal.BookableSpots()); n != 0 {
		t.Fatalf("expected no spots, got %d", n)
	}

	none := New(loc, WithClock(func() time.Time { return now }), WithDays(0)).Generate()
	if len(none.Days) != 0 {
		t.Fatalf("expected no days, got %d", len(none.Days))
	}
}
