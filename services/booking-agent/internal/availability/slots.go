package availability

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) block of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

// MergeBusy sorts busy blocks and joins the ones that touch or overlap. Empty blocks are dropped.
func MergeBusy(busy []Interval) []Interval {
	out := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if !b.Empty() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	merged := out[:0]
	for _, b := range out {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// FreeStarts steps through window and returns every start time at which a meeting of the
// given length fits inside the window without touching a busy block. Starts before notBefore
// are skipped; the zero time keeps everything.
func FreeStarts(window Interval, length, step time.Duration, busy []Interval, notBefore time.Time) []time.Time {
	if length <= 0 || step <= 0 || window.Start.Add(length).After(window.End) {
		return nil
	}
	busy = MergeBusy(busy)

	var starts []time.Time
	next := 0
	for t := window.Start; !t.Add(length).After(window.End); t = t.Add(step) {
		meeting := Interval{Start: t, End: t.Add(length)}
		for next < len(busy) && !busy[next].End.After(t) {
			next++
		}
		if t.Before(notBefore) {
			continue
		}
		if next < len(busy) && busy[next].Overlaps(meeting) {
			continue
		}
		starts = append(starts, t)
	}
	return starts
}
