// Package templates renders the customer-facing message bodies. Rendering is
// pure text substitution with no side effects, so resending a job produces
// the identical message.
package templates

import (
	"fmt"
	"time"
)

// Data carries everything any template may reference. Missing fields render
// as empty strings; templates are written to degrade gracefully.
type Data struct {
	CustomerName       string
	ConfirmationNumber string
	ServiceName        string
	StartTime          time.Time
	AmountCents        int64
	CancelURL          string
	RescheduleURL      string
}

type rendered struct {
	Subject string
	Body    string
}

// Render produces the subject and body for a template name. SMS templates
// return an empty subject.
func Render(name string, d Data) (subject, body string, err error) {
	when := d.StartTime.UTC().Format("Monday, Jan 2 at 3:04 PM")
	var r rendered
	switch name {
	case "confirmation_email":
		r = rendered{
			Subject: fmt.Sprintf("Booking confirmed - %s", d.ConfirmationNumber),
			Body: fmt.Sprintf(
				"Hi %s,\n\nYour %s is booked for %s.\nConfirmation number: %s\n\nNeed to change it?\nReschedule: %s\nCancel: %s\n",
				d.CustomerName, d.ServiceName, when, d.ConfirmationNumber, d.RescheduleURL, d.CancelURL),
		}
	case "confirmation_sms":
		r = rendered{
			Body: fmt.Sprintf("Booked: %s on %s. Ref %s. Cancel: %s",
				d.ServiceName, when, d.ConfirmationNumber, d.CancelURL),
		}
	case "reminder_email":
		r = rendered{
			Subject: fmt.Sprintf("Reminder: %s on %s", d.ServiceName, when),
			Body: fmt.Sprintf(
				"Hi %s,\n\nA reminder that your %s is coming up on %s.\nConfirmation number: %s\n\nCan't make it? Reschedule: %s\n",
				d.CustomerName, d.ServiceName, when, d.ConfirmationNumber, d.RescheduleURL),
		}
	case "reminder_sms":
		r = rendered{
			Body: fmt.Sprintf("Reminder: %s on %s. Ref %s", d.ServiceName, when, d.ConfirmationNumber),
		}
	case "cancelled_email":
		r = rendered{
			Subject: fmt.Sprintf("Booking cancelled - %s", d.ConfirmationNumber),
			Body: fmt.Sprintf(
				"Hi %s,\n\nYour appointment %s has been cancelled. The time slot has been released.\n\nBook again any time.\n",
				d.CustomerName, d.ConfirmationNumber),
		}
	case "cancelled_sms":
		r = rendered{
			Body: fmt.Sprintf("Cancelled: booking %s. The slot has been released.", d.ConfirmationNumber),
		}
	case "rescheduled_email":
		r = rendered{
			Subject: fmt.Sprintf("Booking moved - %s", d.ConfirmationNumber),
			Body: fmt.Sprintf(
				"Hi %s,\n\nYour %s has been moved to %s.\nConfirmation number: %s\n\nNeed to move it again? %s\n",
				d.CustomerName, d.ServiceName, when, d.ConfirmationNumber, d.RescheduleURL),
		}
	case "rescheduled_sms":
		r = rendered{
			Body: fmt.Sprintf("Moved: %s now on %s. Ref %s", d.ServiceName, when, d.ConfirmationNumber),
		}
	case "payment_verified_email":
		r = rendered{
			Subject: fmt.Sprintf("Payment received - %s", d.ConfirmationNumber),
			Body: fmt.Sprintf(
				"Hi %s,\n\nWe received your payment of $%.2f for booking %s. You're all set.\n",
				d.CustomerName, float64(d.AmountCents)/100, d.ConfirmationNumber),
		}
	default:
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	return r.Subject, r.Body, nil
}
