package token

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/identity"
)

var testSecret = []byte("test-secret")

func testVerifier(sessions SessionStore) *Verifier {
	return NewVerifier(testSecret, 15*time.Minute, sessions)
}

func testUser() *identity.User {
	return &identity.User{ID: 42, TenantID: 5, Role: identity.RoleMember}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	v := testVerifier(nil)

	signed, err := v.Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}

	claim, err := v.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claim.UserID != 42 || claim.TenantID != 5 || claim.Role != identity.RoleMember {
		t.Fatalf("unexpected claim %+v", claim)
	}
	if !claim.FromToken {
		t.Fatal("expected FromToken to be set")
	}
}

func TestVerifyRejectsWrongType(t *testing.T) {
	v := testVerifier(nil)
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "hearth-core",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: 42,
		Type:   "refresh",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.Verify(signed); err == nil {
		t.Fatal("expected rejection of non-access token")
	}
}

func TestVerifyRejectsMissingUserID(t *testing.T) {
	v := testVerifier(nil)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "hearth-core",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.Verify(signed); err == nil {
		t.Fatal("expected rejection of token without user id")
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	other := NewVerifier([]byte("other-secret"), 15*time.Minute, nil)
	signed, err := other.Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := testVerifier(nil).Verify(signed); err == nil {
		t.Fatal("expected signature rejection")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewVerifier(testSecret, -time.Minute, nil)
	signed, err := v.Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := testVerifier(nil).Verify(signed); err == nil {
		t.Fatal("expected expiry rejection")
	}
}

type fakeSessions struct {
	data map[string]*Session
}

func (f *fakeSessions) Get(_ context.Context, id string) (*Session, error) {
	s, ok := f.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) Put(_ context.Context, id string, s *Session, _ time.Duration) error {
	f.data[id] = s
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	delete(f.data, id)
	return nil
}

func TestIdentityPrefersBearerOverSession(t *testing.T) {
	sessions := &fakeSessions{data: map[string]*Session{
		"sess-1": {UserID: 9, TenantID: 3, Role: identity.RoleAdmin},
	}}
	v := testVerifier(sessions)

	signed, err := v.Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	r.Header.Set("Cookie", SessionCookie+"=sess-1")

	claim := v.Identity(context.Background(), r)
	if claim == nil || claim.UserID != 42 {
		t.Fatalf("expected bearer identity, got %+v", claim)
	}
}

func TestIdentityFallsBackToSession(t *testing.T) {
	sessions := &fakeSessions{data: map[string]*Session{
		"sess-1": {UserID: 9, TenantID: 3, Role: identity.RoleAdmin},
	}}
	v := testVerifier(sessions)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", SessionCookie+"=sess-1")

	claim := v.Identity(context.Background(), r)
	if claim == nil || claim.UserID != 9 || claim.FromToken {
		t.Fatalf("expected session identity, got %+v", claim)
	}
}

func TestIdentityMalformedBearerYieldsNil(t *testing.T) {
	v := testVerifier(nil)
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer not.a.valid.token")

	if claim := v.Identity(context.Background(), r); claim != nil {
		t.Fatalf("expected nil claim, got %+v", claim)
	}
}
