// Package apierror defines the closed error taxonomy for the Hearth core.
//
// Every rejected request maps to exactly one Kind. Each Kind carries its
// HTTP status and retryability, so the HTTP layer never string-matches on
// error text and clients always receive a stable machine-readable code.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind enumerates every failure class the core can emit.
type Kind int

const (
	// KindAuthenticationRequired means no valid session or token was presented.
	KindAuthenticationRequired Kind = iota
	// KindAuthorizationDenied means a valid identity lacks privilege.
	KindAuthorizationDenied
	// KindTenantMismatch means an explicit tenant header disagrees with the
	// authenticated token and the actor lacks cross-tenant privilege.
	KindTenantMismatch
	// KindTenantInvalid means a referenced tenant id does not exist.
	KindTenantInvalid
	// KindTenantNotFound means no tenant matches the request path.
	KindTenantNotFound
	// KindTenantInactive means the tenant exists but is deactivated.
	KindTenantInactive
	// KindRateLimited means too many attempts were made.
	KindRateLimited
	// KindDependencyFailure means a backing store is unreachable.
	KindDependencyFailure
)

// Code returns the stable machine-readable code string for the kind.
func (k Kind) Code() string {
	switch k {
	case KindAuthenticationRequired:
		return "AUTH_REQUIRED"
	case KindAuthorizationDenied:
		return "FORBIDDEN"
	case KindTenantMismatch:
		return "TENANT_MISMATCH"
	case KindTenantInvalid:
		return "TENANT_INVALID"
	case KindTenantNotFound:
		return "TENANT_NOT_FOUND"
	case KindTenantInactive:
		return "TENANT_INACTIVE"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindDependencyFailure:
		return "DEPENDENCY_FAILURE"
	}
	return "UNKNOWN"
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindAuthorizationDenied, KindTenantMismatch:
		return http.StatusForbidden
	case KindTenantInvalid:
		return http.StatusBadRequest
	case KindTenantNotFound:
		return http.StatusNotFound
	case KindTenantInactive, KindDependencyFailure:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the client may retry the same request later
// without changing it.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTenantInactive, KindDependencyFailure:
		return true
	}
	return false
}

// Error is the canonical error type crossing the core's boundary.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // set for KindRateLimited
	Cause      error         // server-side logging only, never sent to clients
}

// New creates an Error of the given kind with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted client-safe message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches the underlying error for server-side logging.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryAfter attaches a retry hint, surfaced as a Retry-After header.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// Error implements the error interface. It returns the client-safe message.
func (e *Error) Error() string { return e.Message }

// Unwrap allows errors.Is/errors.As to traverse the cause chain.
func (e *Error) Unwrap() error { return e.Cause }

// As extracts the *Error from err's chain, or nil if not found.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsKind reports whether err (or its chain) is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}
