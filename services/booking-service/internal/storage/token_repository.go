package storage

import (
	"context"
	"errors"
	"time"

	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/barberbook/platform/services/booking-service/internal/token"
	"github.com/jackc/pgx/v5"
)

type TokenRepository struct {
	pool *db.Pool
}

func NewTokenRepository(pool *db.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Issue mints a fresh single-use token for one action on one appointment.
// Runs in the caller's transaction so the token only exists if the booking
// (or reschedule) it belongs to commits.
func (r *TokenRepository) Issue(ctx context.Context, tx pgx.Tx, appointmentID, action string, ttl time.Duration) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO action_tokens (token, appointment_id, action, expires_at)
		VALUES ($1, $2, $3, $4)
	`, tok, appointmentID, action, time.Now().UTC().Add(ttl))
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Redeem locks the token row, classifies why it cannot be used (unknown,
// expired, already used, wrong action) and otherwise burns it. Sharing the
// caller's transaction means the burn and the follow-on action commit or
// roll back together: a reschedule that loses its slot race does not consume
// the token.
func (r *TokenRepository) Redeem(ctx context.Context, tx pgx.Tx, tok, action string) (model.ActionToken, error) {
	var at model.ActionToken
	err := tx.QueryRow(ctx, `
		SELECT id, token, appointment_id, action, expires_at, used_at, created_at
		FROM action_tokens
		WHERE token = $1
		FOR UPDATE
	`, tok).Scan(&at.ID, &at.Token, &at.AppointmentID, &at.Action, &at.ExpiresAt, &at.UsedAt, &at.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ActionToken{}, ErrTokenNotFound
	}
	if err != nil {
		return model.ActionToken{}, err
	}

	if err := redeemState(at, action, time.Now()); err != nil {
		return model.ActionToken{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE action_tokens
		SET used_at = now()
		WHERE id = $1 AND used_at IS NULL
	`, at.ID)
	if err != nil {
		return model.ActionToken{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.ActionToken{}, ErrTokenUsed
	}
	return at, nil
}

// redeemState decides whether a token can be burned for an action. The order
// matters: a used token reports used even when it has also expired, so the
// customer-facing message names the real reason the link is dead.
func redeemState(at model.ActionToken, action string, now time.Time) error {
	switch {
	case at.UsedAt != nil:
		return ErrTokenUsed
	case at.Action != action:
		return ErrTokenMismatch
	case now.After(at.ExpiresAt):
		return ErrTokenExpired
	}
	return nil
}

// RevokeForAppointment invalidates outstanding tokens, used after a cancel
// so stale reschedule links stop working.
func (r *TokenRepository) RevokeForAppointment(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE action_tokens
		SET used_at = now()
		WHERE appointment_id = $1 AND used_at IS NULL
	`, appointmentID)
	return err
}
