package availability

import "time"

// Interval is a half-open [Start, End) span of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) valid() bool {
	return iv.End.After(iv.Start)
}

// Subtract returns the parts of window not covered by any busy interval.
// busy must be sorted by Start; intervals outside the window are skipped.
// Linear in len(busy).
func Subtract(window Interval, busy []Interval) []Interval {
	if !window.valid() {
		return nil
	}

	var free []Interval
	cursor := window.Start
	for _, b := range busy {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(window.End) {
			break
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: minTime(b.Start, window.End)})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(window.End) {
			return free
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// SlotStarts emits candidate start times at step increments within free.
// End-exclusive: the last start satisfies start+duration <= free.End, so a
// slot may begin exactly at the window end minus the duration, never later.
func SlotStarts(free Interval, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 || !free.valid() {
		return nil
	}
	var starts []time.Time
	for t := free.Start; !t.Add(duration).After(free.End); t = t.Add(step) {
		starts = append(starts, t)
	}
	return starts
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
