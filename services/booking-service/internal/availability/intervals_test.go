package availability

import (
	"testing"
	"time"
)

func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2026-09-07 "+hhmm)
	if err != nil {
		t.Fatalf("parse %q: %v", hhmm, err)
	}
	return parsed.UTC()
}

func TestSubtractNoBusy(t *testing.T) {
	window := Interval{Start: at(t, "09:00"), End: at(t, "17:00")}
	free := Subtract(window, nil)
	if len(free) != 1 || !free[0].Start.Equal(window.Start) || !free[0].End.Equal(window.End) {
		t.Fatalf("expected whole window free, got %v", free)
	}
}

func TestSubtractMiddleBooking(t *testing.T) {
	window := Interval{Start: at(t, "09:00"), End: at(t, "17:00")}
	busy := []Interval{{Start: at(t, "10:00"), End: at(t, "10:30")}}
	free := Subtract(window, busy)
	if len(free) != 2 {
		t.Fatalf("expected 2 free intervals, got %v", free)
	}
	if !free[0].End.Equal(at(t, "10:00")) || !free[1].Start.Equal(at(t, "10:30")) {
		t.Fatalf("wrong split around booking: %v", free)
	}
}

func TestSubtractAdjacentAndOverlapping(t *testing.T) {
	window := Interval{Start: at(t, "09:00"), End: at(t, "12:00")}
	busy := []Interval{
		{Start: at(t, "09:00"), End: at(t, "09:30")},
		{Start: at(t, "09:30"), End: at(t, "10:00")},
		{Start: at(t, "09:45"), End: at(t, "10:15")},
	}
	free := Subtract(window, busy)
	if len(free) != 1 || !free[0].Start.Equal(at(t, "10:15")) || !free[0].End.Equal(at(t, "12:00")) {
		t.Fatalf("expected single tail interval from 10:15, got %v", free)
	}
}

func TestSubtractBusyOutsideWindow(t *testing.T) {
	window := Interval{Start: at(t, "09:00"), End: at(t, "12:00")}
	busy := []Interval{
		{Start: at(t, "07:00"), End: at(t, "08:00")},
		{Start: at(t, "13:00"), End: at(t, "14:00")},
	}
	free := Subtract(window, busy)
	if len(free) != 1 || !free[0].Start.Equal(window.Start) || !free[0].End.Equal(window.End) {
		t.Fatalf("expected whole window free, got %v", free)
	}
}

func TestSubtractFullyCovered(t *testing.T) {
	window := Interval{Start: at(t, "09:00"), End: at(t, "10:00")}
	busy := []Interval{{Start: at(t, "08:00"), End: at(t, "11:00")}}
	if free := Subtract(window, busy); len(free) != 0 {
		t.Fatalf("expected no free intervals, got %v", free)
	}
}

func TestSlotStartsEndExclusive(t *testing.T) {
	free := Interval{Start: at(t, "16:00"), End: at(t, "17:00")}
	starts := SlotStarts(free, 30*time.Minute, 15*time.Minute)
	// 16:00, 16:15, 16:30 fit; 16:45+30m would overrun the window end.
	if len(starts) != 3 {
		t.Fatalf("expected 3 starts, got %v", starts)
	}
	if !starts[2].Equal(at(t, "16:30")) {
		t.Fatalf("last start should be 16:30, got %v", starts[2])
	}
}

func TestSlotStartsExactFit(t *testing.T) {
	free := Interval{Start: at(t, "10:30"), End: at(t, "11:00")}
	starts := SlotStarts(free, 30*time.Minute, 15*time.Minute)
	if len(starts) != 1 || !starts[0].Equal(at(t, "10:30")) {
		t.Fatalf("expected exactly the 10:30 start, got %v", starts)
	}
}

func TestSlotStartsTooShort(t *testing.T) {
	free := Interval{Start: at(t, "10:00"), End: at(t, "10:20")}
	if starts := SlotStarts(free, 30*time.Minute, 15*time.Minute); len(starts) != 0 {
		t.Fatalf("expected no starts in a 20m gap, got %v", starts)
	}
}
