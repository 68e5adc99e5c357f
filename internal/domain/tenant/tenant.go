// Package tenant defines the tenant domain model and the per-request
// resolved tenant context.
package tenant

import "time"

// MasterID is the distinguished platform tenant. It represents the root
// instance, not a community; path-routed slugs never resolve to it.
const MasterID int64 = 1

// Feature names with platform-defined defaults. Keys absent from a tenant's
// Features map fall back to these defaults.
const (
	FeatureListings     = "listings"
	FeatureMessaging    = "messaging"
	FeatureAPI          = "api"
	FeatureCustomDomain = "custom_domain"
)

var featureDefaults = map[string]bool{
	FeatureListings:     true,
	FeatureMessaging:    true,
	FeatureAPI:          true,
	FeatureCustomDomain: false,
}

// Tenant represents one isolated community instance.
type Tenant struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Domain    string         `json:"domain,omitempty"`
	IsActive  bool           `json:"is_active"`
	Features  map[string]bool `json:"features,omitempty"`
	Config    map[string]any  `json:"configuration,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// HasFeature reports whether the named feature is enabled for the tenant,
// applying platform defaults for unlisted keys.
func (t *Tenant) HasFeature(name string) bool {
	if v, ok := t.Features[name]; ok {
		return v
	}
	return featureDefaults[name]
}

// EffectiveFeatures returns the platform defaults overlaid with the
// tenant's own toggles, including custom keys the platform has no default
// for.
func (t *Tenant) EffectiveFeatures() map[string]bool {
	out := make(map[string]bool, len(featureDefaults)+len(t.Features))
	for name, enabled := range featureDefaults {
		out[name] = enabled
	}
	for name, enabled := range t.Features {
		out[name] = enabled
	}
	return out
}

// IsMaster reports whether the tenant is the platform tenant.
func (t *Tenant) IsMaster() bool { return t.ID == MasterID }

// Fallback returns an in-memory master tenant record used when the datastore
// is unreachable. It carries only default features.
func Fallback() Tenant {
	return Tenant{
		ID:       MasterID,
		Name:     "Hearth",
		Slug:     "hearth",
		IsActive: true,
	}
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain,omitempty"`
}

// UpdateRequest holds the fields that can be updated on a tenant.
type UpdateRequest struct {
	Name     string          `json:"name,omitempty"`
	IsActive *bool           `json:"is_active,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}
