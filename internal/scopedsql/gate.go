// Package scopedsql provides a tenant-scoped query gate: a database handle
// that cannot be constructed without a tenant id and that injects the
// tenant predicate into every statement it executes.
//
// The gate is a safety net under the hand-scoped queries in the store
// layer. Its value is making an unscoped write unrepresentable: code that
// holds a *Gate necessarily holds the tenant it is scoped to.
package scopedsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoTenant is returned when a gate is requested without a tenant in
// scope. Callers must treat this as a security abort, not retry.
var ErrNoTenant = errors.New("scopedsql: no tenant in scope")

// Querier is the subset of pgxpool.Pool the gate executes through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Gate executes SQL with a mandatory tenant predicate. The zero value is
// unusable; construct via ForTenant.
type Gate struct {
	db       Querier
	tenantID int64
}

// ForTenant returns a gate bound to tenantID. A zero or negative id is
// refused so a placeholder (unresolved) tenant context can never reach the
// database.
func ForTenant(db Querier, tenantID int64) (*Gate, error) {
	if tenantID <= 0 {
		return nil, ErrNoTenant
	}
	return &Gate{db: db, tenantID: tenantID}, nil
}

// TenantID returns the tenant this gate is scoped to.
func (g *Gate) TenantID() int64 { return g.tenantID }

// Query runs a SELECT with the tenant predicate injected.
func (g *Gate) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	scoped, scopedArgs, err := rewrite(sql, g.tenantID, args, "")
	if err != nil {
		return nil, err
	}
	return g.db.Query(ctx, scoped, scopedArgs...)
}

// QueryAliased is Query for statements whose scoped table carries an alias,
// so the predicate reads alias.tenant_id.
func (g *Gate) QueryAliased(ctx context.Context, alias, sql string, args ...any) (pgx.Rows, error) {
	scoped, scopedArgs, err := rewrite(sql, g.tenantID, args, alias)
	if err != nil {
		return nil, err
	}
	return g.db.Query(ctx, scoped, scopedArgs...)
}

// Exec runs an UPDATE or DELETE with the tenant predicate injected.
func (g *Gate) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	scoped, scopedArgs, err := rewrite(sql, g.tenantID, args, "")
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return g.db.Exec(ctx, scoped, scopedArgs...)
}

// Insert writes a row into table with the gate's tenant id added as an
// extra column. Column names come from the fields map; order is made
// deterministic by sorting.
func (g *Gate) Insert(ctx context.Context, table string, fields map[string]any) (pgconn.CommandTag, error) {
	if !validIdent(table) {
		return pgconn.CommandTag{}, fmt.Errorf("scopedsql: invalid table name %q", table)
	}
	if _, ok := fields["tenant_id"]; ok {
		return pgconn.CommandTag{}, errors.New("scopedsql: tenant_id must not appear in insert fields")
	}

	cols := make([]string, 0, len(fields))
	for c := range fields {
		if !validIdent(c) {
			return pgconn.CommandTag{}, fmt.Errorf("scopedsql: invalid column name %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]any, 0, len(cols)+1)
	placeholders := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		args = append(args, fields[c])
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	cols = append(cols, "tenant_id")
	args = append(args, g.tenantID)
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return g.db.Exec(ctx, sql, args...)
}

// validIdent accepts plain SQL identifiers, optionally schema-qualified.
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			dots++
			if dots > 1 || i == 0 || i == len(s)-1 {
				return false
			}
		case isIdentByte(c):
			if i == 0 && c >= '0' && c <= '9' {
				return false
			}
		default:
			return false
		}
	}
	return true
}
