package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// parseDate accepts a calendar date and pins it to UTC midnight, the form
// appointments are stored in.
func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return d.UTC(), nil
}

// parseStartMinute converts a wall-clock time like "14:30" to minutes from
// midnight.
func parseStartMinute(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minuteToClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// slotInPast reports whether a slot's start has already gone by. The engine
// filters past starts out of searches; this guards the commit paths, which
// accept a client-supplied time directly.
func slotInPast(date time.Time, startMinute int, now time.Time) bool {
	return date.Add(time.Duration(startMinute) * time.Minute).Before(now)
}
