package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
)

// UserRepository defines read access to staff users for notification routing.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// FindGroupManager returns the support group's first active
	// MANAGER-role member by creation order, or nil when the group has
	// none.
	FindGroupManager(ctx context.Context, groupID string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, role, support_group_id, is_active, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) FindGroupManager(ctx context.Context, groupID string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, role, support_group_id, is_active, created_at, updated_at
        FROM users
        WHERE support_group_id=$1 AND role=$2 AND is_active
        ORDER BY created_at ASC LIMIT 1`

	user, err := r.fetchSingle(ctx, query, groupID, string(domain.UserRoleManager))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.SupportGroupID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
