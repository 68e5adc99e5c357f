package postgres

import (
	"context"
	"fmt"

	"github.com/hearthhub/hearth/internal/domain/page"
	"github.com/hearthhub/hearth/internal/domain/tenant"
	"github.com/hearthhub/hearth/internal/scopedsql"
)

// MasterPageExists reports whether the platform tenant publishes a custom
// static page at the given slug.
func (s *Store) MasterPageExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM pages
		   WHERE tenant_id = $1 AND slug = $2 AND is_published
		 )`, tenant.MasterID, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("master page %q: %w", slug, err)
	}
	return exists, nil
}

// PublishedPages lists a tenant's published pages. The read executes through
// the scoped query gate, which injects the tenant predicate and refuses an
// unresolved tenant id.
func (s *Store) PublishedPages(ctx context.Context, tenantID int64) ([]page.Page, error) {
	return publishedPages(ctx, s.pool, tenantID)
}

func publishedPages(ctx context.Context, db scopedsql.Querier, tenantID int64) ([]page.Page, error) {
	g, err := scopedsql.ForTenant(db, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := g.Query(ctx,
		`SELECT id, tenant_id, slug, title, is_published, updated_at FROM pages WHERE is_published ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []page.Page
	for rows.Next() {
		var p page.Page
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Slug, &p.Title, &p.IsPublished, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
