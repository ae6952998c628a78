package storage

import (
	"context"
	"errors"

	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	pool *db.Pool
}

func NewPaymentRepository(pool *db.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const paymentColumns = `
	id, appointment_id, method, amount_cents, COALESCE(reference, ''),
	COALESCE(proof_url, ''), status, COALESCE(note, ''), COALESCE(verified_by, ''),
	verified_at, created_at`

func scanPayment(row pgx.Row) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.Method,
		&p.AmountCents,
		&p.Reference,
		&p.ProofURL,
		&p.Status,
		&p.Note,
		&p.VerifiedBy,
		&p.VerifiedAt,
		&p.CreatedAt,
	)
	return p, err
}

// Submit records a customer's claim of payment. One payment row per
// appointment: resubmitting while pending overwrites the claim. A settled
// payment is immutable, so a late resubmit gets the settled row back
// unchanged instead of an error.
func (r *PaymentRepository) Submit(ctx context.Context, tx pgx.Tx, appointmentID, method string, amountCents int64, reference, proofURL string) (model.Payment, error) {
	existing, err := r.getForUpdateByAppointment(ctx, tx, appointmentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.Payment{}, err
	}
	if err == nil {
		if existing.Status != model.PaymentPending {
			return existing, nil
		}
		return scanPayment(tx.QueryRow(ctx, `
			UPDATE payments
			SET method = $2, amount_cents = $3, reference = $4, proof_url = $5
			WHERE id = $1
			RETURNING`+paymentColumns,
			existing.ID, method, amountCents, reference, proofURL))
	}
	return scanPayment(tx.QueryRow(ctx, `
		INSERT INTO payments (appointment_id, method, amount_cents, reference, proof_url, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING`+paymentColumns,
		appointmentID, method, amountCents, reference, proofURL))
}

// Verify settles a pending payment as verified or rejected. Terminal states
// reject the transition so double-clicking an admin button cannot flip a
// settled payment.
func (r *PaymentRepository) Verify(ctx context.Context, tx pgx.Tx, paymentID, outcome, note, verifiedBy string) (model.Payment, error) {
	existing, err := r.getForUpdate(ctx, tx, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	if err := settleTransition(existing.Status, outcome); err != nil {
		return model.Payment{}, err
	}
	return scanPayment(tx.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, note = $3, verified_by = $4, verified_at = now()
		WHERE id = $1
		RETURNING`+paymentColumns,
		paymentID, outcome, note, verifiedBy))
}

// settleTransition is the payment state machine: pending may settle as
// verified or rejected, and both of those are terminal.
func settleTransition(current, outcome string) error {
	if outcome != model.PaymentVerified && outcome != model.PaymentRejected {
		return ErrInvalidTransition
	}
	if current != model.PaymentPending {
		return ErrInvalidTransition
	}
	return nil
}

// MarkAppointmentPaymentStatus mirrors the settled payment onto the
// appointment; verification also confirms a pending appointment.
func (r *PaymentRepository) MarkAppointmentPaymentStatus(ctx context.Context, tx pgx.Tx, appointmentID, paymentStatus string) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET payment_status = $2,
			status = CASE WHEN $2 = 'verified' AND status = 'pending' THEN 'confirmed' ELSE status END
		WHERE id = $1
	`, appointmentID, paymentStatus)
	return err
}

func (r *PaymentRepository) GetByAppointment(ctx context.Context, appointmentID string) (model.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx,
		`SELECT`+paymentColumns+` FROM payments WHERE appointment_id = $1`, appointmentID))
}

func (r *PaymentRepository) ListPending(ctx context.Context, limit int) ([]model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Payment, error) {
	return scanPayment(tx.QueryRow(ctx,
		`SELECT`+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
}

func (r *PaymentRepository) getForUpdateByAppointment(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Payment, error) {
	return scanPayment(tx.QueryRow(ctx,
		`SELECT`+paymentColumns+` FROM payments WHERE appointment_id = $1 FOR UPDATE`, appointmentID))
}
