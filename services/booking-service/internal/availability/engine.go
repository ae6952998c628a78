package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"
)

const (
	// AnyBarber asks the engine to offer a slot when at least one barber is
	// free at that time. The concrete barber is chosen at booking time.
	AnyBarber = "any"

	DefaultGranularityMinutes = 15
	maxRangeDays              = 60
)

var ErrBadCriteria = errors.New("invalid search criteria")

// Window is one weekday entry of a barber's weekly schedule, expressed in
// minutes from midnight.
type Window struct {
	Weekday     int
	StartMinute int
	EndMinute   int
	Available   bool
}

// Criteria narrows a slot search. RangeStart and RangeEnd are dates at UTC
// midnight; both days are searched inclusively.
type Criteria struct {
	BarberID           string
	DurationMinutes    int
	GranularityMinutes int
	RangeStart         time.Time
	RangeEnd           time.Time
	Now                time.Time
	Limit              int
}

// Slot is an offered start time. BarberID is empty when the search ran for
// AnyBarber: the engine reports that some barber is free without naming one.
type Slot struct {
	BarberID string
	Start    time.Time
}

// ScheduleReader supplies the schedule data a search needs. Claimed intervals
// must be returned sorted by start time.
type ScheduleReader interface {
	ListActiveBarberIDs(ctx context.Context) ([]string, error)
	WeeklyWindows(ctx context.Context, barberID string) ([]Window, error)
	ClaimedIntervals(ctx context.Context, barberID string, from, to time.Time) ([]Interval, error)
}

type Engine struct {
	schedule ScheduleReader
}

func NewEngine(schedule ScheduleReader) *Engine {
	return &Engine{schedule: schedule}
}

// FindSlots lists open start times matching the criteria, ordered by time.
// For each day in range the barber's window is reduced by already-claimed
// intervals and the remainder is cut into duration-sized slots on the
// granularity grid. Slots starting before Criteria.Now are dropped.
func (e *Engine) FindSlots(ctx context.Context, c Criteria) ([]Slot, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	step := c.GranularityMinutes
	if step == 0 {
		step = DefaultGranularityMinutes
	}

	active, err := e.schedule.ListActiveBarberIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list barbers: %w", err)
	}
	barbers := []string{c.BarberID}
	anyBarber := c.BarberID == AnyBarber
	if anyBarber {
		barbers = active
	} else if !slices.Contains(active, c.BarberID) {
		// Deactivated barbers keep their windows but offer nothing.
		return nil, nil
	}

	rangeEnd := c.RangeEnd.AddDate(0, 0, 1)
	var slots []Slot
	for _, barberID := range barbers {
		windows, err := e.schedule.WeeklyWindows(ctx, barberID)
		if err != nil {
			return nil, fmt.Errorf("weekly windows for %s: %w", barberID, err)
		}
		byWeekday := indexWindows(windows)

		busy, err := e.schedule.ClaimedIntervals(ctx, barberID, c.RangeStart, rangeEnd)
		if err != nil {
			return nil, fmt.Errorf("claimed intervals for %s: %w", barberID, err)
		}

		busyIdx := 0
		duration := time.Duration(c.DurationMinutes) * time.Minute
		stepDur := time.Duration(step) * time.Minute
		for day := c.RangeStart; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
			w, ok := byWeekday[int(day.Weekday())]
			if !ok || !w.Available || w.EndMinute <= w.StartMinute {
				continue
			}
			window := Interval{
				Start: day.Add(time.Duration(w.StartMinute) * time.Minute),
				End:   day.Add(time.Duration(w.EndMinute) * time.Minute),
			}
			// busy is sorted, so intervals ending before this window never
			// matter again. Advancing the index keeps the scan linear.
			for busyIdx < len(busy) && !busy[busyIdx].End.After(window.Start) {
				busyIdx++
			}
			for _, free := range Subtract(window, busy[busyIdx:]) {
				for _, start := range SlotStarts(free, duration, stepDur) {
					if start.Before(c.Now) {
						continue
					}
					slot := Slot{BarberID: barberID, Start: start}
					if anyBarber {
						slot.BarberID = ""
					}
					slots = append(slots, slot)
				}
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	if anyBarber {
		slots = dedupeByStart(slots)
	}
	if c.Limit > 0 && len(slots) > c.Limit {
		slots = slots[:c.Limit]
	}
	return slots, nil
}

func (c Criteria) validate() error {
	if c.BarberID == "" {
		return fmt.Errorf("%w: barber id required", ErrBadCriteria)
	}
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrBadCriteria)
	}
	if c.GranularityMinutes < 0 {
		return fmt.Errorf("%w: granularity must be positive", ErrBadCriteria)
	}
	if c.RangeEnd.Before(c.RangeStart) {
		return fmt.Errorf("%w: range end before range start", ErrBadCriteria)
	}
	if c.RangeEnd.Sub(c.RangeStart) > maxRangeDays*24*time.Hour {
		return fmt.Errorf("%w: range exceeds %d days", ErrBadCriteria, maxRangeDays)
	}
	return nil
}

func indexWindows(windows []Window) map[int]Window {
	byWeekday := make(map[int]Window, len(windows))
	for _, w := range windows {
		byWeekday[w.Weekday] = w
	}
	return byWeekday
}

func dedupeByStart(slots []Slot) []Slot {
	out := slots[:0]
	for i, s := range slots {
		if i > 0 && s.Start.Equal(slots[i-1].Start) {
			continue
		}
		out = append(out, s)
	}
	return out
}
