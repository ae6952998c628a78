package storage

import (
	"context"

	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/services/booking-service/internal/model"
)

type AdminRepository struct {
	pool *db.Pool
}

func NewAdminRepository(pool *db.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	var a model.Admin
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role
		FROM admins
		WHERE lower(email) = lower($1)
	`, email).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role)
	return a, err
}
