package availability

import "github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"

// Intersect keeps the dates present in both calendars and, within them, the time-of-day
// strings present in both. Both inputs must already share a timezone; the result takes a's.
// No common slot yields an empty day list, which callers treat as "no availability".
func Intersect(a, b model.UnifiedCalendar) model.OverlapResult {
	lookupA := timeSets(a)
	lookupB := timeSets(b)

	weekday := make(map[string]string, len(a.AvailableDays))
	for _, d := range a.AvailableDays {
		if _, ok := weekday[d.Date]; !ok {
			weekday[d.Date] = d.DayOfWeek
		}
	}

	out := model.OverlapResult{Timezone: a.Timezone, AvailableDays: []model.UnifiedDay{}}
	for date, timesA := range lookupA {
		timesB, ok := lookupB[date]
		if !ok {
			continue
		}
		var common []string
		for t := range timesA {
			if _, ok := timesB[t]; ok {
				common = append(common, t)
			}
		}
		if len(common) == 0 {
			continue
		}
		sortTimesOfDay(common)
		out.AvailableDays = append(out.AvailableDays, model.UnifiedDay{
			Date:           date,
			DayOfWeek:      weekday[date],
			AvailableTimes: common,
		})
	}
	sortDays(out.AvailableDays)
	return out
}

func timeSets(c model.UnifiedCalendar) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(c.AvailableDays))
	for _, d := range c.AvailableDays {
		set := out[d.Date]
		if set == nil {
			set = make(map[string]struct{}, len(d.AvailableTimes))
			out[d.Date] = set
		}
		for _, t := range d.AvailableTimes {
			set[t] = struct{}{}
		}
	}
	return out
}
