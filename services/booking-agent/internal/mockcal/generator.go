// Package mockcal builds a synthetic week of availability used as the "other party" calendar.
package mockcal

import (
	"math/rand"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

const (
	DefaultDays          = 7
	DefaultBusinessStart = 9
	DefaultBusinessEnd   = 17
	DefaultStep          = 30 * time.Minute
	minBusyBlocks        = 3
	maxBusyBlocks        = 5
)

// clock is a wall-clock start (hour, minute) in the calendar zone.
type clock struct{ H, M int }

var commonStarts = []clock{{9, 0}, {10, 0}, {11, 30}, {13, 0}, {14, 30}, {16, 0}}

var blockLengths = []time.Duration{30 * time.Minute, 60 * time.Minute}

type Generator struct {
	loc   *time.Location
	now   func() time.Time
	rng   *rand.Rand
	days  int
	start int
	end   int
	step  time.Duration
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithDays sets how many calendar days after the anchor are generated.
func WithDays(n int) Option {
	return func(g *Generator) { g.days = n }
}

func New(loc *time.Location, opts ...Option) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	g := &Generator{
		loc:   loc,
		now:   time.Now,
		days:  DefaultDays,
		start: DefaultBusinessStart,
		end:   DefaultBusinessEnd,
		step:  DefaultStep,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(g.now().UnixNano()))
	}
	return g
}

// Generate returns the calendar for the days following the clock's current date.
// Weekend days are listed as unavailable with no spots.
func (g *Generator) Generate() model.MockCalendar {
	anchor := g.now().In(g.loc)
	first := time.Date(anchor.Year(), anchor.Month(), anchor.Day()+1, 0, 0, 0, 0, g.loc)

	cal := model.MockCalendar{
		Calendar: model.Calendar{Timezone: g.loc.String(), Days: []model.Day{}},
		WeekOf:   first,
	}
	for i := 0; i < g.days; i++ {
		date := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, g.loc)
		cal.Days = append(cal.Days, g.day(date))
	}
	return cal
}

func (g *Generator) day(date time.Time) model.Day {
	d := model.Day{Date: date, Status: model.DayUnavailable, Spots: []model.Spot{}}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return d
	}

	window := availability.Interval{Start: g.at(date, clock{g.start, 0}), End: g.at(date, clock{g.end, 0})}
	free := availability.FreeStarts(window, g.step, g.step, g.busyBlocks(date), time.Time{})
	if len(free) == 0 {
		return d
	}

	d.Status = model.DayAvailable
	for _, t := range free {
		d.Spots = append(d.Spots, model.Spot{Start: t, Status: model.SpotAvailable, InviteesRemaining: 1})
	}
	return d
}

func (g *Generator) busyBlocks(date time.Time) []availability.Interval {
	n := minBusyBlocks + g.rng.Intn(maxBusyBlocks-minBusyBlocks+1)

	pool := append([]clock(nil), commonStarts...)
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n < len(pool) {
		pool = pool[:n]
	}

	chosen := make(map[clock]struct{}, n)
	starts := make([]clock, 0, n)
	for _, c := range pool {
		chosen[c] = struct{}{}
		starts = append(starts, c)
	}
	for len(starts) < n {
		c := clock{H: g.start + g.rng.Intn(g.end-g.start), M: 30 * g.rng.Intn(2)}
		if _, dup := chosen[c]; dup {
			continue
		}
		chosen[c] = struct{}{}
		starts = append(starts, c)
	}

	busy := make([]availability.Interval, 0, len(starts))
	for _, c := range starts {
		from := g.at(date, c)
		busy = append(busy, availability.Interval{Start: from, End: from.Add(blockLengths[g.rng.Intn(len(blockLengths))])})
	}
	return busy
}

func (g *Generator) at(date time.Time, c clock) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.H, c.M, 0, 0, g.loc)
}
