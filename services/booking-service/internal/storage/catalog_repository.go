package storage

import (
	"context"
	"fmt"

	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/services/booking-service/internal/model"
)

type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes, regular_cents, vip_cents, is_active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.RegularCents, &s.VIPCents, &s.Active)
	return s, err
}

func (r *CatalogRepository) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, duration_minutes, regular_cents, vip_cents, is_active
		FROM services
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.RegularCents, &s.VIPCents, &s.Active); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// GetAddons resolves addon ids and errors if any id is unknown or inactive,
// so a booking can never reference a retired addon.
func (r *CatalogRepository) GetAddons(ctx context.Context, ids []string) ([]model.Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, regular_cents, vip_cents, is_active
		FROM addons
		WHERE id = ANY($1) AND is_active
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addons []model.Addon
	for rows.Next() {
		var a model.Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.RegularCents, &a.VIPCents, &a.Active); err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(addons) != len(ids) {
		return nil, fmt.Errorf("unknown or inactive addon in %v", ids)
	}
	return addons, nil
}

func (r *CatalogRepository) ListAddons(ctx context.Context) ([]model.Addon, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, regular_cents, vip_cents, is_active
		FROM addons
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addons []model.Addon
	for rows.Next() {
		var a model.Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.RegularCents, &a.VIPCents, &a.Active); err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

func (r *CatalogRepository) CreateService(ctx context.Context, s model.Service) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (name, duration_minutes, regular_cents, vip_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, s.Name, s.DurationMinutes, s.RegularCents, s.VIPCents).Scan(&id)
	return id, err
}

func (r *CatalogRepository) CreateAddon(ctx context.Context, a model.Addon) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO addons (name, regular_cents, vip_cents)
		VALUES ($1, $2, $3)
		RETURNING id
	`, a.Name, a.RegularCents, a.VIPCents).Scan(&id)
	return id, err
}
