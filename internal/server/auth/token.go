// Package auth issues and verifies the signed access and refresh tokens
// that make up a session. Each kind has its own HMAC secret and lifetime.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind tells access tokens and refresh tokens apart.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Verification failures, checked in this order.
var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
)

var ErrInvalidTokenConfig = errors.New("invalid token config")

// TokenConfig holds the signing material. It has no defaults.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

func (c TokenConfig) Validate() error {
	switch {
	case c.AccessSecret == "":
		return fmt.Errorf("%w: access token secret is required", ErrInvalidTokenConfig)
	case c.RefreshSecret == "":
		return fmt.Errorf("%w: refresh token secret is required", ErrInvalidTokenConfig)
	case c.AccessSecret == c.RefreshSecret:
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidTokenConfig)
	case c.AccessTTL <= 0:
		return fmt.Errorf("%w: access token ttl must be positive", ErrInvalidTokenConfig)
	case c.RefreshTTL <= 0:
		return fmt.Errorf("%w: refresh token ttl must be positive", ErrInvalidTokenConfig)
	}
	return nil
}

// Claims is the JWT payload. Username and Email are only set on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Kind     Kind   `json:"typ"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Identity is what an access token says about its holder.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenManager is immutable after construction and safe for concurrent use.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *TokenManager) IssueAccessToken(id Identity) (string, error) {
	c := m.claims(id.ID, KindAccess, m.accessTTL)
	c.Username = id.Username
	c.Email = id.Email
	return m.sign(c, m.accessSecret)
}

func (m *TokenManager) IssueRefreshToken(userID string) (string, error) {
	return m.sign(m.claims(userID, KindRefresh, m.refreshTTL), m.refreshSecret)
}

func (m *TokenManager) IssuePair(id Identity) (*TokenPair, error) {
	access, err := m.IssueAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, err := m.IssueRefreshToken(id.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks token against the secret of the expected kind and returns
// its claims. Errors wrap ErrTokenMalformed, ErrTokenBadSignature or
// ErrTokenExpired. A token of the other kind fails the signature check.
func (m *TokenManager) Verify(token string, kind Kind) (*Claims, error) {
	secret := m.accessSecret
	if kind == KindRefresh {
		secret = m.refreshSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: unexpected token kind %q", ErrTokenMalformed, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	return claims, nil
}

// Reason names the verification failure for metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "other"
	}
}

func (m *TokenManager) claims(subject string, kind Kind, ttl time.Duration) *Claims {
	now := m.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Kind: kind,
	}
}

func (m *TokenManager) sign(c *Claims, secret []byte) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", c.Kind, err)
	}
	return s, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
