package repository

import (
	"context"

	"github.com/spec-kit/auth-service/internal/domain"
)

// RoleRepository defines persistence access for the role catalog.
type RoleRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// Create inserts a role. A duplicate name yields ErrConflict.
	Create(ctx context.Context, role *domain.Role) error
}

type roleRepository struct {
	db DB
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(db DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	const query = `SELECT id, name, created_at FROM roles WHERE name=$1`

	var role domain.Role
	if err := r.db.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
		return nil, translatePgError(err)
	}
	return &role, nil
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name)
        VALUES ($1)
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, role.Name).Scan(&role.ID, &role.CreatedAt)
	return translatePgError(err)
}
