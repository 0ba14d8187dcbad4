package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

// Unify projects cal into targetTZ as time-of-day strings grouped by the converted date.
//
// The source zone is cal.Timezone. Every bookable spot is converted instant by instant, so a
// late slot may roll over onto another calendar date in the target zone. An empty targetTZ
// means "stay in the source zone". Unknown zones are reported as ErrUnknownTimezone.
func Unify(cal model.Calendar, targetTZ string) (model.UnifiedCalendar, error) {
	source := strings.TrimSpace(cal.Timezone)
	if source != "" {
		if _, err := LoadZone(source); err != nil {
			return model.UnifiedCalendar{}, fmt.Errorf("source zone: %w", err)
		}
	}
	target := strings.TrimSpace(targetTZ)
	if target == "" {
		target = source
	}
	loc, err := LoadZone(target)
	if err != nil {
		return model.UnifiedCalendar{}, fmt.Errorf("target zone: %w", err)
	}

	type acc struct {
		date  time.Time
		times []string
		seen  map[string]struct{}
	}
	byDate := make(map[string]*acc)
	for _, spot := range cal.BookableSpots() {
		local := spot.Start.In(loc)
		label := local.Format(DateLayout)
		a := byDate[label]
		if a == nil {
			a = &acc{
				date: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
				seen: make(map[string]struct{}),
			}
			byDate[label] = a
		}
		tod := local.Format(TimeLayout)
		if _, dup := a.seen[tod]; dup {
			continue
		}
		a.seen[tod] = struct{}{}
		a.times = append(a.times, tod)
	}

	out := model.UnifiedCalendar{Timezone: target, AvailableDays: make([]model.UnifiedDay, 0, len(byDate))}
	for label, a := range byDate {
		sortTimesOfDay(a.times)
		out.AvailableDays = append(out.AvailableDays, model.UnifiedDay{
			Date:           label,
			DayOfWeek:      a.date.Format(weekdayLayout),
			AvailableTimes: a.times,
		})
	}
	sortDays(out.AvailableDays)
	return out, nil
}

func sortDays(days []model.UnifiedDay) {
	sort.SliceStable(days, func(i, j int) bool {
		a, okA := ParseDate(days[i].Date)
		b, okB := ParseDate(days[j].Date)
		return lessDate(datedKey{label: days[i].Date, date: a, ok: okA}, datedKey{label: days[j].Date, date: b, ok: okB})
	})
}
