package model

import "time"

// Appointment lifecycle. Pending and confirmed appointments hold their slot;
// cancelled and completed ones release it.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment verification states. Verified and rejected are terminal.
const (
	PaymentPending  = "pending"
	PaymentVerified = "verified"
	PaymentRejected = "rejected"
)

type Appointment struct {
	ID                 string
	ConfirmationNumber string
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	VIP                bool
	BarberID           string
	ServiceID          string
	AddonIDs           []string
	Date               time.Time // date at UTC midnight
	StartMinute        int
	DurationMinutes    int
	Status             string
	PaymentStatus      string
	PriceCents         int64
	CancelledAt        *time.Time
	CreatedAt          time.Time
}

// StartTime resolves the stored date + minute-of-day pair to an instant.
func (a Appointment) StartTime() time.Time {
	return a.Date.Add(time.Duration(a.StartMinute) * time.Minute)
}

func (a Appointment) EndTime() time.Time {
	return a.StartTime().Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// HoldsSlot reports whether the appointment still blocks its time slot.
func (a Appointment) HoldsSlot() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

type Barber struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	RegularCents    int64
	VIPCents        int64
	Active          bool
}

type Addon struct {
	ID           string
	Name         string
	RegularCents int64
	VIPCents     int64
	Active       bool
}

type ActionToken struct {
	ID            string
	Token         string
	AppointmentID string
	Action        string
	ExpiresAt     time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
}

type Payment struct {
	ID            string
	AppointmentID string
	Method        string
	AmountCents   int64
	Reference     string
	ProofURL      string
	Status        string
	Note          string
	VerifiedBy    string
	VerifiedAt    *time.Time
	CreatedAt     time.Time
}

type Admin struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
}
