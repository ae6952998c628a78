package storage

import (
	"context"
	"time"

	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/services/booking-service/internal/availability"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

// ScheduleRepository reads and mutates barbers and their weekly windows, and
// feeds the availability engine.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) ListActiveBarberIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM barbers WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WeeklyWindows returns the barber's schedule, or nothing for a deactivated
// barber, so every caller treats deactivation the same as having no hours.
func (r *ScheduleRepository) WeeklyWindows(ctx context.Context, barberID string) ([]availability.Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.weekday, w.start_minute, w.end_minute, w.is_available
		FROM availability_windows w
		JOIN barbers b ON b.id = w.barber_id
		WHERE w.barber_id = $1 AND b.is_active
		ORDER BY w.weekday
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []availability.Window
	for rows.Next() {
		var w availability.Window
		if err := rows.Scan(&w.Weekday, &w.StartMinute, &w.EndMinute, &w.Available); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// ClaimedIntervals lists the busy spans of slot-holding appointments for one
// barber, ordered by start, over [from, to).
func (r *ScheduleRepository) ClaimedIntervals(ctx context.Context, barberID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, start_minute, duration_minutes
		FROM appointments
		WHERE barber_id = $1
			AND status IN ('pending', 'confirmed')
			AND date >= $2::date
			AND date < $3::date
		ORDER BY date, start_minute
	`, barberID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var date time.Time
		var startMinute, duration int
		if err := rows.Scan(&date, &startMinute, &duration); err != nil {
			return nil, err
		}
		start := date.UTC().Add(time.Duration(startMinute) * time.Minute)
		intervals = append(intervals, availability.Interval{
			Start: start,
			End:   start.Add(time.Duration(duration) * time.Minute),
		})
	}
	return intervals, rows.Err()
}

func (r *ScheduleRepository) CreateBarber(ctx context.Context, name string) (model.Barber, error) {
	var b model.Barber
	err := r.pool.QueryRow(ctx, `
		INSERT INTO barbers (name) VALUES ($1)
		RETURNING id, name, is_active, created_at
	`, name).Scan(&b.ID, &b.Name, &b.Active, &b.CreatedAt)
	return b, err
}

func (r *ScheduleRepository) ListBarbers(ctx context.Context) ([]model.Barber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, is_active, created_at FROM barbers ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barbers []model.Barber
	for rows.Next() {
		var b model.Barber
		if err := rows.Scan(&b.ID, &b.Name, &b.Active, &b.CreatedAt); err != nil {
			return nil, err
		}
		barbers = append(barbers, b)
	}
	return barbers, rows.Err()
}

func (r *ScheduleRepository) SetBarberActive(ctx context.Context, barberID string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE barbers SET is_active = $2 WHERE id = $1`, barberID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpsertWindow replaces one weekday entry of a barber's weekly schedule.
// Future slot searches see the new window; existing appointments are not
// touched.
func (r *ScheduleRepository) UpsertWindow(ctx context.Context, barberID string, w availability.Window) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_windows (barber_id, weekday, start_minute, end_minute, is_available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (barber_id, weekday) DO UPDATE
		SET start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			is_available = EXCLUDED.is_available,
			updated_at = now()
	`, barberID, w.Weekday, w.StartMinute, w.EndMinute, w.Available)
	return err
}
