// Package service contains the application services sitting between the
// HTTP layer and the domain.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	hearthotel "github.com/hearthhub/hearth/internal/adapter/otel"
	"github.com/hearthhub/hearth/internal/authz"
	"github.com/hearthhub/hearth/internal/config"
	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/domain/identity"
	"github.com/hearthhub/hearth/internal/port/database"
	"github.com/hearthhub/hearth/internal/ratelimit"
	"github.com/hearthhub/hearth/internal/token"
)

// Attempt counter families. Lockout is tracked per email and per source IP
// independently; either one tripping blocks the login.
const (
	attemptKindEmail = "login"
	attemptKindIP    = "login_ip"
)

// AuthService handles credential checks, session lifecycle, and the login
// brute-force guard.
type AuthService struct {
	store    database.Store
	guard    *ratelimit.LoginGuard
	verifier *token.Verifier
	sessions token.SessionStore
	cfg      config.Auth
}

// NewAuthService creates the authentication service.
func NewAuthService(store database.Store, guard *ratelimit.LoginGuard, verifier *token.Verifier, sessions token.SessionStore, cfg config.Auth) *AuthService {
	return &AuthService{store: store, guard: guard, verifier: verifier, sessions: sessions, cfg: cfg}
}

// LoginRequest carries the credentials posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful authentication: a bearer token for API
// clients and a session id set as a cookie for browsers.
type LoginResult struct {
	Token     string
	SessionID string
	User      *identity.User
}

// Login authenticates a user within the resolved tenant. Every attempt is
// recorded; invalid email and invalid password are indistinguishable to the
// caller.
func (s *AuthService) Login(ctx context.Context, tenantID int64, req LoginRequest, ip string) (*LoginResult, error) {
	ctx, span := hearthotel.StartLoginSpan(ctx, tenantID)
	defer span.End()

	if req.Email == "" || req.Password == "" {
		return nil, apierror.New(apierror.KindAuthenticationRequired, "email and password are required")
	}

	for _, check := range []struct{ identifier, kind string }{
		{req.Email, attemptKindEmail},
		{ip, attemptKindIP},
	} {
		d, err := s.guard.Check(ctx, check.identifier, check.kind)
		if err != nil {
			return nil, apierror.New(apierror.KindDependencyFailure, "login temporarily unavailable").WithCause(err)
		}
		if d.Limited {
			return nil, apierror.New(apierror.KindRateLimited, "too many login attempts").
				WithRetryAfter(d.RetryAfter)
		}
	}

	u, err := s.store.UserByEmail(ctx, tenantID, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.failedAttempt(ctx, req.Email, ip)
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, s.failedAttempt(ctx, req.Email, ip)
	}
	if !u.IsActive {
		return nil, s.failedAttempt(ctx, req.Email, ip)
	}

	s.recordOutcome(ctx, req.Email, ip, true)

	signed, err := s.verifier.Sign(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	sessionID := uuid.NewString()
	if s.sessions != nil {
		sess := &token.Session{
			UserID:     u.ID,
			TenantID:   u.TenantID,
			Role:       u.Role,
			God:        u.IsGod,
			SuperAdmin: u.IsSuperAdmin,
		}
		if err := s.sessions.Put(ctx, sessionID, sess, s.cfg.SessionTTL); err != nil {
			// Bearer auth still works without the session.
			slog.Warn("session store write failed", "error", err)
			sessionID = ""
		}
	} else {
		sessionID = ""
	}

	return &LoginResult{Token: signed, SessionID: sessionID, User: u}, nil
}

// Logout drops the server-side session. Bearer tokens stay valid until
// expiry; they are stateless.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// SessionTTL exposes the configured session lifetime for cookie expiry.
func (s *AuthService) SessionTTL() time.Duration { return s.cfg.SessionTTL }

// CanImpersonate reports whether the actor may impersonate the target user.
func (s *AuthService) CanImpersonate(ctx context.Context, actor *identity.Claim, targetID int64) (bool, error) {
	target, err := s.store.UserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("impersonation target: %w", err)
	}
	return authz.CanImpersonate(actor, target), nil
}

func (s *AuthService) failedAttempt(ctx context.Context, email, ip string) error {
	s.recordOutcome(ctx, email, ip, false)
	return apierror.New(apierror.KindAuthenticationRequired, "invalid credentials")
}

func (s *AuthService) recordOutcome(ctx context.Context, email, ip string, success bool) {
	if err := s.guard.Record(ctx, email, attemptKindEmail, ip, success); err != nil {
		slog.Warn("record login attempt failed", "error", err)
	}
	if err := s.guard.Record(ctx, ip, attemptKindIP, ip, success); err != nil {
		slog.Warn("record login attempt failed", "error", err)
	}
}
