package scopedsql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// tenantArg is the named-argument key reserved for the injected predicate.
const tenantArg = "scopedTenantID"

var (
	// ErrUnsupportedStatement is returned for statements the gate cannot
	// scope (anything other than SELECT, UPDATE, DELETE).
	ErrUnsupportedStatement = errors.New("scopedsql: statement is not SELECT, UPDATE, or DELETE")

	// ErrMixedParamStyles is returned when a statement mixes positional and
	// named placeholders.
	ErrMixedParamStyles = errors.New("scopedsql: positional and named parameters mixed in one statement")

	// ErrReservedArg is returned when the caller's named arguments already
	// use the key reserved for the tenant predicate.
	ErrReservedArg = errors.New("scopedsql: named argument " + tenantArg + " is reserved")
)

// rewrite injects a tenant_id predicate into a SELECT, UPDATE, or DELETE
// statement and returns the rewritten SQL with its argument list. The
// predicate lands inside the WHERE clause, before any trailing GROUP BY,
// ORDER BY, LIMIT, OFFSET, FOR, or RETURNING clause. An existing WHERE
// condition is parenthesized so OR branches cannot escape the tenant filter.
func rewrite(sql string, tenantID int64, args []any, alias string) (string, []any, error) {
	verb := firstKeyword(sql)
	switch verb {
	case "SELECT", "UPDATE", "DELETE":
	default:
		return "", nil, fmt.Errorf("%w (got %q)", ErrUnsupportedStatement, verb)
	}

	scan := scanStatement(sql)

	column := "tenant_id"
	if alias != "" {
		column = alias + ".tenant_id"
	}

	named, namedArgs, err := classifyArgs(sql, scan, args)
	if err != nil {
		return "", nil, err
	}

	var predicate string
	var outArgs []any
	if named {
		if _, exists := namedArgs[tenantArg]; exists {
			return "", nil, ErrReservedArg
		}
		merged := make(pgx.NamedArgs, len(namedArgs)+1)
		for k, v := range namedArgs {
			merged[k] = v
		}
		merged[tenantArg] = tenantID
		predicate = column + " = @" + tenantArg
		outArgs = []any{merged}
	} else {
		predicate = fmt.Sprintf("%s = $%d", column, len(args)+1)
		outArgs = append(append([]any{}, args...), tenantID)
	}

	var b strings.Builder
	b.Grow(len(sql) + len(predicate) + 16)
	switch {
	case scan.whereEnd > 0:
		existing := strings.TrimSpace(sql[scan.whereEnd:scan.tailStart])
		b.WriteString(sql[:scan.whereEnd])
		b.WriteString(" ")
		b.WriteString(predicate)
		b.WriteString(" AND (")
		b.WriteString(existing)
		b.WriteString(")")
	default:
		b.WriteString(strings.TrimRight(sql[:scan.tailStart], " \t\n"))
		b.WriteString(" WHERE ")
		b.WriteString(predicate)
	}
	if scan.tailStart < len(sql) {
		b.WriteString(" ")
		b.WriteString(sql[scan.tailStart:])
	}
	return b.String(), outArgs, nil
}

// classifyArgs decides between positional ($n) and named (@name) parameter
// styles and rejects statements that mix them.
func classifyArgs(sql string, scan scanResult, args []any) (bool, pgx.NamedArgs, error) {
	if scan.hasPositional && scan.hasNamed {
		return false, nil, ErrMixedParamStyles
	}
	if len(args) == 1 {
		if na, ok := args[0].(pgx.NamedArgs); ok {
			if scan.hasPositional {
				return false, nil, ErrMixedParamStyles
			}
			return true, na, nil
		}
	}
	if scan.hasNamed {
		return false, nil, fmt.Errorf("scopedsql: named placeholders require a single pgx.NamedArgs argument")
	}
	return false, nil, nil
}

// scanResult carries the top-level structure of a statement: the byte offset
// just past the WHERE keyword (0 when absent), the offset where the trailing
// clause block begins (len(sql) when absent), and which placeholder styles
// appear outside quoted regions.
type scanResult struct {
	whereEnd      int
	tailStart     int
	hasPositional bool
	hasNamed      bool
}

// tailKeywords begin the clause block the tenant predicate must precede.
// GROUP and ORDER cover GROUP BY and ORDER BY; HAVING never appears without
// GROUP BY but is included for safety.
var tailKeywords = map[string]bool{
	"GROUP":     true,
	"HAVING":    true,
	"ORDER":     true,
	"LIMIT":     true,
	"OFFSET":    true,
	"FETCH":     true,
	"FOR":       true,
	"RETURNING": true,
}

// scanStatement walks the statement once, tracking single-quoted strings,
// double-quoted identifiers, and parenthesis depth, so keywords inside
// literals or subqueries are never mistaken for top-level clauses.
func scanStatement(sql string) scanResult {
	res := scanResult{tailStart: len(sql)}
	depth := 0
	inSingle, inDouble := false, false
	tailFound := false

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inSingle:
			if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					i++
				} else {
					inSingle = false
				}
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == '$':
			if i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' {
				res.hasPositional = true
			}
		case c == '@':
			if i+1 < len(sql) && isIdentByte(sql[i+1]) {
				res.hasNamed = true
			}
		case depth == 0 && isWordStart(sql, i):
			end := i
			for end < len(sql) && isIdentByte(sql[end]) {
				end++
			}
			word := strings.ToUpper(sql[i:end])
			if word == "WHERE" && !tailFound {
				res.whereEnd = end
			} else if tailKeywords[word] && !tailFound {
				res.tailStart = i
				tailFound = true
			}
			i = end - 1
		}
	}
	return res
}

// firstKeyword returns the statement's leading keyword, uppercased.
func firstKeyword(sql string) string {
	sql = strings.TrimLeft(sql, " \t\r\n")
	end := 0
	for end < len(sql) && isIdentByte(sql[end]) {
		end++
	}
	return strings.ToUpper(sql[:end])
}

func isWordStart(sql string, i int) bool {
	if !isIdentByte(sql[i]) || sql[i] >= '0' && sql[i] <= '9' {
		return false
	}
	return i == 0 || !isIdentByte(sql[i-1])
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
