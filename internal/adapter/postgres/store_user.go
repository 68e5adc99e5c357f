package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/identity"
)

const userColumns = `id, tenant_id, email, name, password_hash, role, is_god, is_super_admin, is_active, created_at`

func scanUser(row scannable) (identity.User, error) {
	var u identity.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash,
		&u.Role, &u.IsGod, &u.IsSuperAdmin, &u.IsActive, &u.CreatedAt)
	return u, err
}

func (s *Store) UserByID(ctx context.Context, id int64) (*identity.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, tenantID int64, email string) (*identity.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		tenantID, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return &u, nil
}

// UserPrivilege reads the god/super-admin flags directly from the row.
// Inactive users carry no privilege regardless of their flags.
func (s *Store) UserPrivilege(ctx context.Context, userID int64) (bool, bool, error) {
	var god, superAdmin, active bool
	err := s.pool.QueryRow(ctx,
		`SELECT is_god, is_super_admin, is_active FROM users WHERE id = $1`, userID,
	).Scan(&god, &superAdmin, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return false, false, fmt.Errorf("user privilege %d: %w", userID, err)
	}
	if !active {
		return false, false, nil
	}
	return god, superAdmin, nil
}
