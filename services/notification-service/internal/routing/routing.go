// Package routing decides which notifications an appointment event fans out
// to: the channel, the message template, and when the message should go out.
package routing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types consumed from the booking service.
const (
	EventAppointmentCreated     = "appointment.created.v1"
	EventAppointmentCancelled   = "appointment.cancelled.v1"
	EventAppointmentRescheduled = "appointment.rescheduled.v1"
	EventPaymentVerified        = "payment.verified.v1"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Anchor names the reference instant the offset applies to.
type Anchor string

const (
	// AnchorEvent schedules relative to when the event happened; offset 0
	// means send immediately.
	AnchorEvent Anchor = "event"
	// AnchorStart schedules relative to the appointment start; a negative
	// offset is a pre-appointment reminder.
	AnchorStart Anchor = "start"
)

type Route struct {
	Channel  string
	Template string
	Offset   time.Duration
	Anchor   Anchor
}

// Table maps an event type to the notifications it produces.
type Table map[string][]Route

// Defaults is the stock barbershop routing: instant confirmations on both
// channels, an email reminder a day out and a text two hours out, instant
// notices for cancels, moves and verified payments.
func Defaults() Table {
	return Table{
		EventAppointmentCreated: {
			{Channel: ChannelEmail, Template: "confirmation_email"},
			{Channel: ChannelSMS, Template: "confirmation_sms"},
			{Channel: ChannelEmail, Template: "reminder_email", Offset: -24 * time.Hour, Anchor: AnchorStart},
			{Channel: ChannelSMS, Template: "reminder_sms", Offset: -2 * time.Hour, Anchor: AnchorStart},
		},
		EventAppointmentCancelled: {
			{Channel: ChannelEmail, Template: "cancelled_email"},
			{Channel: ChannelSMS, Template: "cancelled_sms"},
		},
		EventAppointmentRescheduled: {
			{Channel: ChannelEmail, Template: "rescheduled_email"},
			{Channel: ChannelSMS, Template: "rescheduled_sms"},
			{Channel: ChannelEmail, Template: "reminder_email", Offset: -24 * time.Hour, Anchor: AnchorStart},
			{Channel: ChannelSMS, Template: "reminder_sms", Offset: -2 * time.Hour, Anchor: AnchorStart},
		},
		EventPaymentVerified: {
			{Channel: ChannelEmail, Template: "payment_verified_email"},
		},
	}
}

// Parse reads a route list from an env override. Form:
// "channel:template:offsetMinutes:anchor" entries separated by commas, e.g.
// "email:confirmation_email:0:event,sms:reminder_sms:-120:start".
func Parse(raw string) ([]Route, error) {
	var routes []Route
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("route %q: want channel:template:offsetMinutes:anchor", part)
		}
		channel := strings.TrimSpace(fields[0])
		if channel != ChannelEmail && channel != ChannelSMS {
			return nil, fmt.Errorf("route %q: unknown channel %q", part, channel)
		}
		template := strings.TrimSpace(fields[1])
		if template == "" {
			return nil, fmt.Errorf("route %q: template required", part)
		}
		mins, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("route %q: bad offset: %w", part, err)
		}
		anchor := Anchor(strings.TrimSpace(fields[3]))
		if anchor != AnchorEvent && anchor != AnchorStart {
			return nil, fmt.Errorf("route %q: unknown anchor %q", part, anchor)
		}
		routes = append(routes, Route{
			Channel:  channel,
			Template: template,
			Offset:   time.Duration(mins) * time.Minute,
			Anchor:   anchor,
		})
	}
	return routes, nil
}

// ScheduleAt resolves the route's send time. Times already in the past clamp
// to now so a same-day booking still gets its reminder rather than a skipped
// one.
func (r Route) ScheduleAt(eventTime, startTime, now time.Time) time.Time {
	base := eventTime
	if r.Anchor == AnchorStart {
		base = startTime
	}
	at := base.Add(r.Offset)
	if at.Before(now) {
		return now
	}
	return at
}
