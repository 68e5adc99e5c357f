package tenant

// Context is the per-request resolved tenant record. It is created once by
// the resolver, published through the request context, and never mutated
// afterwards. Two simultaneous requests always carry independent Contexts.
type Context struct {
	tenant   Tenant
	basePath string

	// Retained transiently so the authorization layer can detect
	// disagreement between an explicit header and an authenticated token.
	headerTenantID int64
	tokenTenantID  int64
}

// NewContext builds an immutable resolved tenant context.
func NewContext(t Tenant, basePath string, headerTenantID, tokenTenantID int64) *Context {
	return &Context{
		tenant:         t,
		basePath:       basePath,
		headerTenantID: headerTenantID,
		tokenTenantID:  tokenTenantID,
	}
}

// Placeholder returns a context for aborted resolutions. The embedded tenant
// has id 0 and is inactive, so code that unconditionally reads the current
// tenant after an aborted request does not dereference nil. It is never a
// valid scope for queries: the query gate rejects tenant id 0.
func Placeholder(headerTenantID, tokenTenantID int64) *Context {
	return NewContext(Tenant{ID: 0, Name: "unresolved", IsActive: false}, "", headerTenantID, tokenTenantID)
}

// Tenant returns a copy of the resolved tenant.
func (c *Context) Tenant() Tenant { return c.tenant }

// ID returns the resolved tenant id (0 when resolution was aborted).
func (c *Context) ID() int64 { return c.tenant.ID }

// BasePath returns "" for domain-bound or master tenants and "/{slug}" for
// path-routed tenants.
func (c *Context) BasePath() string { return c.basePath }

// HasFeature reports whether the named feature is enabled for the resolved
// tenant.
func (c *Context) HasFeature(name string) bool { return c.tenant.HasFeature(name) }

// HeaderTenantID returns the tenant id claimed by the X-Tenant-Id header,
// or 0 when none was supplied.
func (c *Context) HeaderTenantID() int64 { return c.headerTenantID }

// TokenTenantID returns the tenant id embedded in the bearer token, or 0.
func (c *Context) TokenTenantID() int64 { return c.tokenTenantID }
