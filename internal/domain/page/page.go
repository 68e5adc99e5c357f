// Package page defines tenant-owned static content pages.
package page

import "time"

// Page is a static content page belonging to one tenant. Master-tenant
// pages double as fallback routes for unknown path slugs.
type Page struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	IsPublished bool      `json:"is_published"`
	UpdatedAt   time.Time `json:"updated_at"`
}
