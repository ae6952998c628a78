package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// slotConstraint is the partial unique index over (barber_id, date,
// start_minute) for slot-holding appointments. A violation means another
// booking won the slot.
const slotConstraint = "appointments_slot_key"

var (
	ErrSlotTaken    = errors.New("slot already taken")
	ErrNoBarberFree = errors.New("no barber free at that time")

	ErrTokenNotFound = errors.New("action token not found")
	ErrTokenExpired  = errors.New("action token expired")
	ErrTokenUsed     = errors.New("action token already used")
	ErrTokenMismatch = errors.New("action token issued for a different action")

	ErrInvalidTransition = errors.New("invalid state transition")
)

// classifySlotConflict maps a unique violation on the slot index to
// ErrSlotTaken and passes every other error through.
func classifySlotConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == slotConstraint {
		return ErrSlotTaken
	}
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
