// Package token implements the credential verifier: bearer token signing
// and verification plus session-cookie identity lookup.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hearthhub/hearth/internal/domain/identity"
)

// SessionCookie is the cookie carrying the server-side session id.
const SessionCookie = "hearth_session"

// TypeAccess is the only token type accepted for authentication.
const TypeAccess = "access"

// Claims is the payload embedded in a Hearth bearer token.
type Claims struct {
	jwt.RegisteredClaims

	UserID     int64  `json:"uid"`
	TenantID   int64  `json:"tid,omitempty"`
	Role       string `json:"rol"`
	Type       string `json:"typ"`
	God        bool   `json:"god,omitempty"`
	SuperAdmin bool   `json:"sup,omitempty"`
}

// Session is the server-side session record read for cookie-based auth.
type Session struct {
	UserID     int64         `json:"user_id"`
	TenantID   int64         `json:"tenant_id"`
	Role       identity.Role `json:"user_role"`
	God        bool          `json:"is_god,omitempty"`
	SuperAdmin bool          `json:"is_super_admin,omitempty"`
}

// SessionStore is the port for server-side session storage.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, id string, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Verifier validates bearer tokens and session cookies into identity claims.
type Verifier struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	sessions SessionStore
}

// NewVerifier creates a Verifier. sessions may be nil when session-based
// auth is disabled (API-only deployments).
func NewVerifier(secret []byte, ttl time.Duration, sessions SessionStore) *Verifier {
	return &Verifier{secret: secret, issuer: "hearth-core", ttl: ttl, sessions: sessions}
}

// Sign issues an HS256 access token for the user.
func (v *Verifier) Sign(u *identity.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		UserID:     u.ID,
		TenantID:   u.TenantID,
		Role:       string(u.Role),
		Type:       TypeAccess,
		God:        u.IsGod,
		SuperAdmin: u.IsSuperAdmin,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, issuer, and token type, and returns the
// identity claim. This is the gate for every privileged decision.
func (v *Verifier) Verify(tokenStr string) (*identity.Claim, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(v.issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Type != TypeAccess {
		return nil, errors.New("token is not an access token")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user id")
	}

	return &identity.Claim{
		UserID:     claims.UserID,
		TenantID:   claims.TenantID,
		Role:       identity.Role(claims.Role),
		God:        claims.God,
		SuperAdmin: claims.SuperAdmin,
		FromToken:  true,
	}, nil
}

// Identity extracts the request's identity claim: a bearer token when
// present (stateless), otherwise the session cookie. Malformed or invalid
// credentials yield nil, never an error; unauthenticated is a normal state.
func (v *Verifier) Identity(ctx context.Context, r *http.Request) *identity.Claim {
	if raw := BearerToken(r); raw != "" {
		claim, err := v.Verify(raw)
		if err != nil {
			return nil
		}
		return claim
	}

	if v.sessions == nil {
		return nil
	}
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := v.sessions.Get(ctx, cookie.Value)
	if err != nil || sess.UserID == 0 {
		return nil
	}
	return &identity.Claim{
		UserID:     sess.UserID,
		TenantID:   sess.TenantID,
		Role:       sess.Role,
		God:        sess.God,
		SuperAdmin: sess.SuperAdmin,
	}
}

// BearerToken returns the raw token from an Authorization: Bearer header,
// or "" when absent or malformed.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	raw := strings.TrimPrefix(h, "Bearer ")
	if raw == h {
		return ""
	}
	return raw
}
