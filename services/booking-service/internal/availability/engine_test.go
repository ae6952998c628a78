package availability

import (
	"context"
	"testing"
	"time"
)

type fakeSchedule struct {
	barbers []string
	windows map[string][]Window
	claimed map[string][]Interval
}

func (f *fakeSchedule) ListActiveBarberIDs(ctx context.Context) ([]string, error) {
	return f.barbers, nil
}

func (f *fakeSchedule) WeeklyWindows(ctx context.Context, barberID string) ([]Window, error) {
	return f.windows[barberID], nil
}

func (f *fakeSchedule) ClaimedIntervals(ctx context.Context, barberID string, from, to time.Time) ([]Interval, error) {
	var within []Interval
	for _, iv := range f.claimed[barberID] {
		if iv.End.After(from) && iv.Start.Before(to) {
			within = append(within, iv)
		}
	}
	return within, nil
}

// 2026-09-07 is a Monday.
func day(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2026-09-07")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	return d.UTC()
}

func allWeek(startMinute, endMinute int) []Window {
	windows := make([]Window, 7)
	for wd := range windows {
		windows[wd] = Window{Weekday: wd, StartMinute: startMinute, EndMinute: endMinute, Available: true}
	}
	return windows
}

func hasStart(slots []Slot, start time.Time) bool {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return true
		}
	}
	return false
}

func TestFindSlotsSkipsClaimedTime(t *testing.T) {
	d := day(t)
	sched := &fakeSchedule{
		barbers: []string{"b1"},
		windows: map[string][]Window{
			"b1": allWeek(9*60, 17*60),
		},
		claimed: map[string][]Interval{
			"b1": {{Start: d.Add(10 * time.Hour), End: d.Add(10*time.Hour + 30*time.Minute)}},
		},
	}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        "b1",
		DurationMinutes: 30,
		RangeStart:      d,
		RangeEnd:        d,
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected open slots")
	}
	if hasStart(slots, d.Add(10*time.Hour)) {
		t.Fatal("10:00 is claimed and must not be offered")
	}
	if hasStart(slots, d.Add(9*time.Hour+45*time.Minute)) {
		t.Fatal("09:45 would overlap the 10:00 booking")
	}
	if !hasStart(slots, d.Add(9*time.Hour+30*time.Minute)) {
		t.Fatal("09:30 ends exactly when the booking starts and should be offered")
	}
	if !hasStart(slots, d.Add(10*time.Hour+30*time.Minute)) {
		t.Fatal("10:30 starts exactly when the booking ends and should be offered")
	}
}

func TestFindSlotsWindowEndExclusive(t *testing.T) {
	d := day(t)
	sched := &fakeSchedule{barbers: []string{"b1"}, windows: map[string][]Window{"b1": allWeek(9*60, 17*60)}}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        "b1",
		DurationMinutes: 30,
		RangeStart:      d,
		RangeEnd:        d,
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	if !hasStart(slots, d.Add(16*time.Hour+30*time.Minute)) {
		t.Fatal("16:30 fills the window exactly and should be offered")
	}
	if hasStart(slots, d.Add(16*time.Hour+45*time.Minute)) {
		t.Fatal("16:45 would run past the 17:00 close")
	}
}

func TestFindSlotsUnavailableDay(t *testing.T) {
	d := day(t)
	windows := allWeek(9*60, 17*60)
	windows[1].Available = false // Monday off
	sched := &fakeSchedule{barbers: []string{"b1"}, windows: map[string][]Window{"b1": windows}}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        "b1",
		DurationMinutes: 30,
		RangeStart:      d,
		RangeEnd:        d,
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a day off, got %d", len(slots))
	}
}

func TestFindSlotsAnyBarberUnionAndDedupe(t *testing.T) {
	d := day(t)
	sched := &fakeSchedule{
		barbers: []string{"b1", "b2"},
		windows: map[string][]Window{
			"b1": allWeek(9*60, 12*60),
			"b2": allWeek(9*60, 12*60),
		},
		claimed: map[string][]Interval{
			// b1 fully booked 9-11, b2 fully booked 10-12.
			"b1": {{Start: d.Add(9 * time.Hour), End: d.Add(11 * time.Hour)}},
			"b2": {{Start: d.Add(10 * time.Hour), End: d.Add(12 * time.Hour)}},
		},
	}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        AnyBarber,
		DurationMinutes: 60,
		RangeStart:      d,
		RangeEnd:        d,
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	// b2 covers 09:00, b1 covers 11:00; neither covers 10:00 for a full hour.
	if !hasStart(slots, d.Add(9*time.Hour)) || !hasStart(slots, d.Add(11*time.Hour)) {
		t.Fatalf("expected 09:00 and 11:00 in the union, got %v", slots)
	}
	if hasStart(slots, d.Add(10*time.Hour)) {
		t.Fatal("no barber can take a full hour at 10:00")
	}
	for i, s := range slots {
		if s.BarberID != "" {
			t.Fatalf("any-barber slots must not name a barber, got %q", s.BarberID)
		}
		if i > 0 && s.Start.Equal(slots[i-1].Start) {
			t.Fatalf("duplicate start %v in any-barber results", s.Start)
		}
	}
}

func TestFindSlotsDropsPastStarts(t *testing.T) {
	d := day(t)
	sched := &fakeSchedule{barbers: []string{"b1"}, windows: map[string][]Window{"b1": allWeek(9*60, 12*60)}}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        "b1",
		DurationMinutes: 30,
		RangeStart:      d,
		RangeEnd:        d,
		Now:             d.Add(10*time.Hour + 5*time.Minute),
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	for _, s := range slots {
		if s.Start.Before(d.Add(10*time.Hour + 5*time.Minute)) {
			t.Fatalf("slot %v is in the past", s.Start)
		}
	}
	if !hasStart(slots, d.Add(10*time.Hour+15*time.Minute)) {
		t.Fatal("next grid start after now should be offered")
	}
}

func TestFindSlotsLimit(t *testing.T) {
	d := day(t)
	sched := &fakeSchedule{barbers: []string{"b1"}, windows: map[string][]Window{"b1": allWeek(9*60, 17*60)}}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        "b1",
		DurationMinutes: 30,
		RangeStart:      d,
		RangeEnd:        d.AddDate(0, 0, 6),
		Limit:           10,
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	if len(slots) != 10 {
		t.Fatalf("expected limit of 10 slots, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].Start) {
			t.Fatal("slots must be ordered by start time")
		}
	}
}

func TestFindSlotsInactiveBarberOffersNothing(t *testing.T) {
	d := day(t)
	// b2 still has windows on file but is no longer active.
	sched := &fakeSchedule{
		barbers: []string{"b1"},
		windows: map[string][]Window{
			"b1": allWeek(9*60, 17*60),
			"b2": allWeek(9*60, 17*60),
		},
	}
	engine := NewEngine(sched)

	slots, err := engine.FindSlots(context.Background(), Criteria{
		BarberID:        "b2",
		DurationMinutes: 30,
		RangeStart:      d,
		RangeEnd:        d,
	})
	if err != nil {
		t.Fatalf("FindSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("deactivated barber must offer no slots, got %d", len(slots))
	}
}

func TestFindSlotsRejectsBadCriteria(t *testing.T) {
	engine := NewEngine(&fakeSchedule{})
	d := day(t)
	cases := []Criteria{
		{BarberID: "", DurationMinutes: 30, RangeStart: d, RangeEnd: d},
		{BarberID: "b1", DurationMinutes: 0, RangeStart: d, RangeEnd: d},
		{BarberID: "b1", DurationMinutes: 30, RangeStart: d, RangeEnd: d.AddDate(0, 0, -1)},
		{BarberID: "b1", DurationMinutes: 30, RangeStart: d, RangeEnd: d.AddDate(0, 0, 90)},
	}
	for i, c := range cases {
		if _, err := engine.FindSlots(context.Background(), c); err == nil {
			t.Fatalf("case %d: expected criteria error", i)
		}
	}
}
