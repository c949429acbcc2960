package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/noteful/apiserver/config"
	"github.com/noteful/apiserver/types"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the token payload: the user identity plus the registered
// sub/exp/iat claims.
type Claims struct {
	User types.Identity `json:"user"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens. It holds no per-user state;
// the token is the only source of identity.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a TokenManager.
type Option func(*TokenManager)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		m.now = now
	}
}

// NewTokenManager returns an error when the secret or TTL is unusable; callers
// treat that as fatal at startup.
func NewTokenManager(cfg config.AuthConfig, opts ...Option) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.JWTExpiry <= 0 {
		return nil, errors.New("jwt expiry must be positive")
	}

	m := &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.JWTExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for the identity, with subject set to the username.
func (m *TokenManager) Issue(identity types.Identity) (string, error) {
	now := m.now()
	return m.sign(identity, now, now.Add(m.ttl))
}

// Refresh verifies tokenString and signs a new token for the same identity.
// The new exp is always strictly after the old one; exp has one-second
// resolution, so a refresh within the same second moves it forward by one
// second.
func (m *TokenManager) Refresh(tokenString string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	if prev := claims.ExpiresAt.Time; !expiresAt.Truncate(time.Second).After(prev) {
		expiresAt = prev.Add(time.Second)
	}
	return m.sign(claims.User, now, expiresAt)
}

func (m *TokenManager) sign(identity types.Identity, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		User: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
// Expired tokens yield ErrTokenExpired; anything else that fails yields
// ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (types.Identity, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return types.Identity{}, err
	}
	return claims.User, nil
}

// ParseClaims verifies the token and returns all of its claims.
func (m *TokenManager) ParseClaims(tokenString string) (Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return Claims{}, err
	}
	return *claims, nil
}

func (m *TokenManager) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.User.ID == "" || claims.Subject != claims.User.Username {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
