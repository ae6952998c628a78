package storage

import (
	"context"
	"errors"
	"time"

	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type AppointmentRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AppointmentRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *AppointmentRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $2,
			status_code = $3,
			response_payload = $4,
			updated_at = now()
		WHERE idempotency_key = $1
	`, key, appointmentID, statusCode, response)
	return err
}

// Create inserts the appointment. When another slot-holding appointment
// already occupies (barber, date, start) the unique index fires and the
// caller gets ErrSlotTaken.
func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(confirmation_number, customer_name, customer_email, customer_phone, is_vip,
			 barber_id, service_id, addon_ids, date, start_minute, duration_minutes,
			 status, payment_status, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, appt.ConfirmationNumber, appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone, appt.VIP,
		appt.BarberID, appt.ServiceID, appt.AddonIDs, appt.Date, appt.StartMinute, appt.DurationMinutes,
		appt.Status, appt.PaymentStatus, appt.PriceCents).Scan(&id)
	if err != nil {
		return "", classifySlotConflict(err)
	}
	return id, nil
}

const appointmentColumns = `
	id, confirmation_number, customer_name, customer_email, customer_phone, is_vip,
	barber_id, service_id, addon_ids, date, start_minute, duration_minutes,
	status, payment_status, price_cents, cancelled_at, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.ConfirmationNumber,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.CustomerPhone,
		&appt.VIP,
		&appt.BarberID,
		&appt.ServiceID,
		&appt.AddonIDs,
		&appt.Date,
		&appt.StartMinute,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.PaymentStatus,
		&appt.PriceCents,
		&appt.CancelledAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Date = appt.Date.UTC()
	return appt, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT`+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (r *AppointmentRepository) GetByConfirmation(ctx context.Context, confirmation string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT`+appointmentColumns+` FROM appointments WHERE confirmation_number = $1`, confirmation))
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx,
		`SELECT`+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

// Cancel releases the slot. Only pending and confirmed appointments can be
// cancelled; anything else reports ErrInvalidTransition.
func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, id string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now()
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING cancelled_at
	`, id).Scan(&cancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrInvalidTransition
	}
	return cancelledAt, err
}

// Reschedule moves a slot-holding appointment to a new barber, date and
// start. The slot index guards the target; a loss surfaces as ErrSlotTaken.
func (r *AppointmentRepository) Reschedule(ctx context.Context, tx pgx.Tx, id, barberID string, date time.Time, startMinute int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET barber_id = $2,
			date = $3,
			start_minute = $4
		WHERE id = $1 AND status IN ('pending', 'confirmed')
	`, id, barberID, date, startMinute)
	if err != nil {
		return classifySlotConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *AppointmentRepository) Complete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'completed'
		WHERE id = $1 AND status = 'confirmed'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// FindFreeBarber picks a barber for an "any barber" booking: active, working
// a window that covers the slot, with no slot-holding appointment overlapping
// it. Runs inside the booking transaction; the slot index still backstops the
// race where two bookings pick the same barber.
func (r *AppointmentRepository) FindFreeBarber(ctx context.Context, tx pgx.Tx, date time.Time, startMinute, endMinute int) (string, error) {
	weekday := int(date.UTC().Weekday())
	var id string
	err := tx.QueryRow(ctx, `
		SELECT b.id
		FROM barbers b
		JOIN availability_windows w ON w.barber_id = b.id
			AND w.weekday = $1
			AND w.is_available
			AND w.start_minute <= $2
			AND w.end_minute >= $3
		WHERE b.is_active
			AND NOT EXISTS (
				SELECT 1 FROM appointments a
				WHERE a.barber_id = b.id
					AND a.date = $4
					AND a.status IN ('pending', 'confirmed')
					AND a.start_minute < $3
					AND a.start_minute + a.duration_minutes > $2
			)
		ORDER BY b.id
		LIMIT 1
	`, weekday, startMinute, endMinute, date).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoBarberFree
	}
	return id, err
}

func (r *AppointmentRepository) List(ctx context.Context, status string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR status = $1)
		ORDER BY date DESC, start_minute DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
