// Package scope issues and validates scope tokens. A scope is the storage
// namespace of one client installation; its token names the scope and the
// acting user inside it. It does not authenticate a person.
package scope

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTokenTTL = 30 * 24 * time.Hour
	DefaultIssuer   = "mannmitra-api"
	defaultAudience = "mannmitra-scope"
)

var (
	ErrMissingSigningSecret = errors.New("scope: signing secret required")
	ErrMissingToken         = errors.New("scope: token required")
	ErrInvalidToken         = errors.New("scope: invalid token")
	ErrExpiredToken         = errors.New("scope: token expired")
	ErrMissingSubject       = errors.New("scope: scope id and user id required")
)

// Claims is the scope token payload. Subject holds the scope id.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Grant is the result of issuing a token.
type Grant struct {
	Token     string `json:"token"`
	ScopeID   string `json:"scope_id"`
	UserID    string `json:"user_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// Identity is what a validated token asserts.
type Identity struct {
	ScopeID string
	UserID  string
}

type ManagerConfig struct {
	SigningSecret []byte
	Issuer        string
	TokenTTL      time.Duration
	Clock         func() time.Time
	// NewID generates scope and user identifiers. Defaults to UUIDv7.
	NewID func() (string, error)
}

// Manager issues and validates HS256 scope tokens.
type Manager struct {
	signingSecret []byte
	issuer        string
	ttl           time.Duration
	clock         func() time.Time
	newID         func() (string, error)
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = newUUIDv7
	}
	return &Manager{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		ttl:           ttl,
		clock:         clock,
		newID:         newID,
	}, nil
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Issue opens a fresh scope with a fresh acting user.
func (m *Manager) Issue(ctx context.Context) (Grant, error) {
	scopeID, err := m.newID()
	if err != nil {
		return Grant{}, fmt.Errorf("scope: generate scope id: %w", err)
	}
	userID, err := m.newID()
	if err != nil {
		return Grant{}, fmt.Errorf("scope: generate user id: %w", err)
	}
	return m.sign(ctx, Identity{ScopeID: scopeID, UserID: userID})
}

// Refresh re-signs a still-valid token with a new expiry.
func (m *Manager) Refresh(ctx context.Context, token string) (Grant, error) {
	identity, err := m.Validate(token)
	if err != nil {
		return Grant{}, err
	}
	return m.sign(ctx, identity)
}

func (m *Manager) sign(_ context.Context, identity Identity) (Grant, error) {
	now := m.clock().UTC()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		UserID: identity.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ScopeID,
			Issuer:    m.issuer,
			Audience:  []string{defaultAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingSecret)
	if err != nil {
		return Grant{}, fmt.Errorf("scope: sign token: %w", err)
	}
	return Grant{
		Token:     signed,
		ScopeID:   identity.ScopeID,
		UserID:    identity.UserID,
		ExpiresIn: int64(expiresAt.Sub(now).Seconds()),
	}, nil
}

// Validate checks signature, issuer, audience and expiry.
func (m *Manager) Validate(tokenString string) (Identity, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.signingSecret, nil
		},
		jwt.WithTimeFunc(m.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(defaultAudience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	identity := Identity{ScopeID: strings.TrimSpace(claims.Subject), UserID: strings.TrimSpace(claims.UserID)}
	if identity.ScopeID == "" || identity.UserID == "" {
		return Identity{}, ErrMissingSubject
	}
	return identity, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	trimmed := strings.TrimSpace(header)
	if len(trimmed) < len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(trimmed[len(prefix):])
}
