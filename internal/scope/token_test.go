package scope

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSigningSecret = "scope-secret"

func newTestManager(t *testing.T, now *time.Time) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerConfig{
		SigningSecret: []byte(testSigningSecret),
		TokenTTL:      time.Hour,
		Clock:         func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("failed to construct manager: %v", err)
	}
	return manager
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(ManagerConfig{}); !errors.Is(err, ErrMissingSigningSecret) {
		t.Fatalf("expected ErrMissingSigningSecret, got %v", err)
	}
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &now)

	grant, err := manager.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if grant.ExpiresIn != int64(time.Hour.Seconds()) {
		t.Fatalf("unexpected expiry %d", grant.ExpiresIn)
	}
	parsed, err := uuid.Parse(grant.ScopeID)
	if err != nil || parsed.Version() != 7 {
		t.Fatalf("expected UUIDv7 scope id, got %q (%v)", grant.ScopeID, err)
	}
	if grant.UserID == "" || grant.UserID == grant.ScopeID {
		t.Fatalf("expected distinct user id, got %q", grant.UserID)
	}

	identity, err := manager.Validate(grant.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity.ScopeID != grant.ScopeID || identity.UserID != grant.UserID {
		t.Fatalf("unexpected identity %+v", identity)
	}

	other, err := manager.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if other.ScopeID == grant.ScopeID {
		t.Fatalf("expected a fresh scope per issue")
	}
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &now)
	grant, err := manager.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := manager.Validate(grant.Token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if _, err := manager.Refresh(context.Background(), grant.Token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected refresh of expired token to fail, got %v", err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "scope",
			Issuer:    DefaultIssuer,
			Audience:  []string{defaultAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.Validate(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := manager.Validate("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestValidateRequiresUserID(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &now)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "scope",
			Issuer:    DefaultIssuer,
			Audience:  []string{defaultAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSigningSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.Validate(signed); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestRefreshKeepsIdentity(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &now)
	grant, err := manager.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(30 * time.Minute)
	refreshed, err := manager.Refresh(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.ScopeID != grant.ScopeID || refreshed.UserID != grant.UserID {
		t.Fatalf("refresh changed identity: %+v", refreshed)
	}
	now = now.Add(45 * time.Minute)
	if _, err := manager.Validate(refreshed.Token); err != nil {
		t.Fatalf("refreshed token should outlive the original: %v", err)
	}
}

func TestIssuePropagatesIDFailure(t *testing.T) {
	manager, err := NewManager(ManagerConfig{
		SigningSecret: []byte(testSigningSecret),
		NewID:         func() (string, error) { return "", fmt.Errorf("entropy exhausted") },
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if _, err := manager.Issue(context.Background()); err == nil {
		t.Fatalf("expected id generation failure")
	}
}

func TestBearerToken(t *testing.T) {
	testCases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for header, expected := range testCases {
		if actual := BearerToken(header); actual != expected {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, actual, expected)
		}
	}
}
