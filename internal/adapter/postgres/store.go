package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/tenant"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

const tenantColumns = `id, name, slug, COALESCE(domain, ''), is_active, features, configuration, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	var featuresJSON, configJSON []byte
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Domain, &t.IsActive,
		&featuresJSON, &configJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return tenant.Tenant{}, err
	}
	if featuresJSON != nil {
		_ = json.Unmarshal(featuresJSON, &t.Features)
	}
	if configJSON != nil {
		_ = json.Unmarshal(configJSON, &t.Config)
	}
	return t, nil
}

func (s *Store) tenantBy(ctx context.Context, where string, arg any) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE `+where, arg)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %v: %w", arg, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("tenant %v: %w", arg, err)
	}
	return &t, nil
}

func (s *Store) TenantByID(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return s.tenantBy(ctx, "id = $1", id)
}

func (s *Store) TenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.tenantBy(ctx, "slug = $1", slug)
}

func (s *Store) TenantByDomain(ctx context.Context, d string) (*tenant.Tenant, error) {
	return s.tenantBy(ctx, "domain = $1", d)
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, slug, domain)
		 VALUES ($1, $2, NULLIF($3, ''))
		 RETURNING `+tenantColumns,
		req.Name, req.Slug, req.Domain)

	t, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create tenant %q: %w", req.Slug, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create tenant %q: %w", req.Slug, err)
	}
	return &t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	featuresJSON, err := json.Marshal(t.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET name = $2, is_active = $3, features = $4, updated_at = now()
		 WHERE id = $1`,
		t.ID, t.Name, t.IsActive, featuresJSON)
	if err != nil {
		return fmt.Errorf("update tenant %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update tenant %d: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}
