package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleAdmin grants catalog management rights.
const RoleAdmin = "admin"

// UsersRepository reads profile and role data owned by the identity provider.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// HasRole reports whether the user holds the given role.
func (r *UsersRepository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		userID, role).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return ok, nil
}

// IsAdmin is HasRole for RoleAdmin.
func (r *UsersRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return r.HasRole(ctx, userID, RoleAdmin)
}

// CountProfiles returns the number of registered users.
func (r *UsersRepository) CountProfiles(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// UpsertProfile records a profile; used by seeding and tests.
func (r *UsersRepository) UpsertProfile(ctx context.Context, id string, name, email *string) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO profiles (id, name, email)
        VALUES ($1,$2,$3)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
    `, id, name, email)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GrantRole assigns a role to a user.
func (r *UsersRepository) GrantRole(ctx context.Context, userID, role string) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO user_roles (user_id, role) VALUES ($1,$2)
        ON CONFLICT DO NOTHING
    `, userID, role)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}
