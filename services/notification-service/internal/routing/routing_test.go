package routing

import (
	"testing"
	"time"
)

func TestDefaultsCoverAllEvents(t *testing.T) {
	table := Defaults()
	for _, evt := range []string{
		EventAppointmentCreated,
		EventAppointmentCancelled,
		EventAppointmentRescheduled,
		EventPaymentVerified,
	} {
		if len(table[evt]) == 0 {
			t.Fatalf("no routes for %s", evt)
		}
	}
	for evt, routes := range table {
		for _, r := range routes {
			if r.Channel != ChannelEmail && r.Channel != ChannelSMS {
				t.Fatalf("%s: bad channel %q", evt, r.Channel)
			}
			if r.Template == "" {
				t.Fatalf("%s: empty template", evt)
			}
		}
	}
}

func TestParse(t *testing.T) {
	routes, err := Parse("email:confirmation_email:0:event, sms:reminder_sms:-120:start")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Channel != ChannelEmail || routes[0].Anchor != AnchorEvent || routes[0].Offset != 0 {
		t.Fatalf("wrong first route: %+v", routes[0])
	}
	if routes[1].Offset != -120*time.Minute || routes[1].Anchor != AnchorStart {
		t.Fatalf("wrong second route: %+v", routes[1])
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"email:confirmation_email:0", // missing anchor
		"fax:confirmation_email:0:event",
		"email::0:event",
		"email:tpl:soon:event",
		"email:tpl:0:midnight",
	} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestScheduleAt(t *testing.T) {
	eventTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	startTime := time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC)
	now := eventTime

	immediate := Route{Channel: ChannelEmail, Template: "confirmation_email"}
	if at := immediate.ScheduleAt(eventTime, startTime, now); !at.Equal(eventTime) {
		t.Fatalf("immediate route should fire at event time, got %v", at)
	}

	reminder := Route{Channel: ChannelSMS, Template: "reminder_sms", Offset: -2 * time.Hour, Anchor: AnchorStart}
	if at := reminder.ScheduleAt(eventTime, startTime, now); !at.Equal(startTime.Add(-2 * time.Hour)) {
		t.Fatalf("reminder should fire 2h before start, got %v", at)
	}

	// Booking made 30 minutes before the appointment: the 2h reminder is
	// already in the past and clamps to now instead of being dropped.
	lateNow := startTime.Add(-30 * time.Minute)
	if at := reminder.ScheduleAt(lateNow, startTime, lateNow); !at.Equal(lateNow) {
		t.Fatalf("past reminder should clamp to now, got %v", at)
	}
}
