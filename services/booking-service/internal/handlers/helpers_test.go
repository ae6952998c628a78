package handlers

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate(" 2026-09-07 ")
	if err != nil {
		t.Fatalf("parseDate failed: %v", err)
	}
	if d.Hour() != 0 || d.Minute() != 0 || d.Location().String() != "UTC" {
		t.Fatalf("expected UTC midnight, got %v", d)
	}
	for _, bad := range []string{"", "09/07/2026", "2026-13-01", "tomorrow"} {
		if _, err := parseDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseStartMinute(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:00": 540,
		"14:30": 870,
		"23:45": 1425,
	}
	for raw, want := range cases {
		got, err := parseStartMinute(raw)
		if err != nil {
			t.Fatalf("parseStartMinute(%q) failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseStartMinute(%q) = %d, want %d", raw, got, want)
		}
	}
	for _, bad := range []string{"", "25:00", "9am", "14:60"} {
		if _, err := parseStartMinute(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSlotInPast(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := day.Add(12 * time.Hour)

	if !slotInPast(day, 9*60, now) {
		t.Fatal("09:00 is behind a noon clock and must be rejected")
	}
	if slotInPast(day, 14*60, now) {
		t.Fatal("14:00 is still ahead of a noon clock")
	}
	if !slotInPast(day.AddDate(0, 0, -1), 14*60, now) {
		t.Fatal("yesterday is always in the past")
	}
	if slotInPast(day.AddDate(0, 0, 1), 9*60, now) {
		t.Fatal("tomorrow morning is not in the past")
	}
}

func TestMinuteToClock(t *testing.T) {
	if got := minuteToClock(870); got != "14:30" {
		t.Fatalf("minuteToClock(870) = %q", got)
	}
	if got := minuteToClock(0); got != "00:00" {
		t.Fatalf("minuteToClock(0) = %q", got)
	}
}
