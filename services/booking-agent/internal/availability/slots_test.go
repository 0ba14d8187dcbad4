package availability

import (
	"testing"
	"time"
)

func workday(t *testing.T) (func(h, m int) time.Time, Interval) {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	at := func(h, m int) time.Time { return time.Date(2025, 6, 4, h, m, 0, 0, loc) }
	return at, Interval{Start: at(9, 0), End: at(17, 0)}
}

func TestFreeStarts_LunchAndStandup(t *testing.T) {
	at, window := workday(t)
	busy := []Interval{
		{Start: at(12, 0), End: at(13, 0)},
		{Start: at(9, 0), End: at(9, 30)},
	}

	starts := FreeStarts(Interval{Start: window.Start, End: at(13, 30)}, 30*time.Minute, 30*time.Minute, busy, time.Time{})
	want := []time.Time{at(9, 30), at(10, 0), at(10, 30), at(11, 0), at(11, 30), at(13, 0)}
	if len(starts) != len(want) {
		t.Fatalf("expected %d starts, got %v", len(want), starts)
	}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Fatalf("start %d: expected %s, got %s", i, want[i].Format(time.Kitchen), starts[i].Format(time.Kitchen))
		}
	}
}

func TestFreeStarts_HourLongMeetingNeedsWholeGap(t *testing.T) {
	at, window := workday(t)
	busy := []Interval{{Start: at(10, 30), End: at(11, 0)}}

	starts := FreeStarts(Interval{Start: window.Start, End: at(12, 0)}, time.Hour, 30*time.Minute, busy, time.Time{})
	// 10:00 and 10:30 would run into the 10:30 block.
	want := []time.Time{at(9, 0), at(9, 30), at(11, 0)}
	if len(starts) != len(want) {
		t.Fatalf("expected %v, got %v", want, starts)
	}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Fatalf("start %d: expected %s, got %s", i, want[i], starts[i])
		}
	}
}

func TestFreeStarts_NotBefore(t *testing.T) {
	at, window := workday(t)
	starts := FreeStarts(window, 30*time.Minute, 30*time.Minute, nil, at(16, 1))
	if len(starts) != 1 || !starts[0].Equal(at(16, 30)) {
		t.Fatalf("expected only 16:30, got %v", starts)
	}
}

func TestFreeStarts_RejectsUnusableInput(t *testing.T) {
	at, window := workday(t)
	cases := map[string][]time.Time{
		"zero length":      FreeStarts(window, 0, time.Minute, nil, time.Time{}),
		"zero step":        FreeStarts(window, time.Minute, 0, nil, time.Time{}),
		"empty window":     FreeStarts(Interval{Start: at(9, 0), End: at(9, 0)}, time.Minute, time.Minute, nil, time.Time{}),
		"window too tight": FreeStarts(Interval{Start: at(9, 0), End: at(9, 20)}, 30*time.Minute, time.Minute, nil, time.Time{}),
	}
	for name, got := range cases {
		if got != nil {
			t.Fatalf("%s: expected nil, got %v", name, got)
		}
	}
}

func TestMergeBusy(t *testing.T) {
	at, _ := workday(t)
	merged := MergeBusy([]Interval{
		{Start: at(14, 0), End: at(15, 0)},
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(9, 15), End: at(9, 45)},
		{Start: at(11, 0), End: at(11, 0)},
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 blocks, got %v", merged)
	}
	if !merged[0].Start.Equal(at(9, 0)) || !merged[0].End.Equal(at(10, 30)) {
		t.Fatalf("unexpected first block %v", merged[0])
	}
	if !merged[1].Start.Equal(at(14, 0)) {
		t.Fatalf("unexpected second block %v", merged[1])
	}
}

func TestIntervalOverlapsIsHalfOpen(t *testing.T) {
	at, _ := workday(t)
	a := Interval{Start: at(9, 0), End: at(9, 30)}
	if a.Overlaps(Interval{Start: at(9, 30), End: at(10, 0)}) {
		t.Fatalf("touching intervals must not overlap")
	}
	if !a.Overlaps(Interval{Start: at(9, 29), End: at(10, 0)}) {
		t.Fatalf("expected overlap")
	}
}
