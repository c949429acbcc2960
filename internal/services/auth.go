package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/auth"
	"github.com/noteful/apiserver/internal/store"
	"github.com/noteful/apiserver/types"
)

const (
	msgMissingCredentials = "Missing username or password"
	msgBadCredentials     = "Incorrect username or password"
	msgUnauthorized       = "Unauthorized"
)

// AuthService implements login and token refresh.
type AuthService struct {
	users  UserRepository
	hasher *auth.Hasher
	tokens *auth.TokenManager
}

func NewAuthService(users UserRepository, hasher *auth.Hasher, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// VerifyCredentials checks a username/password pair. An unknown username and
// a wrong password produce the same error after the same hashing work.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (types.Identity, error) {
	if username == "" || password == "" {
		return types.Identity{}, apperr.BadRequest(msgMissingCredentials)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return types.Identity{}, apperr.Unauthorized(msgBadCredentials)
		}
		return types.Identity{}, apperr.Internal(fmt.Errorf("load user: %w", err))
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return types.Identity{}, apperr.Unauthorized(msgBadCredentials)
	}
	return user.Identity(), nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	identity, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.Issue(identity)
}

// Authenticate verifies a bearer token and returns the identity it carries.
func (s *AuthService) Authenticate(token string) (types.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return types.Identity{}, &apperr.Error{Kind: apperr.KindUnauthorized, Message: msgUnauthorized, Err: err}
	}
	return identity, nil
}

// Refresh exchanges a still-valid token for one with a strictly later expiry.
func (s *AuthService) Refresh(token string) (string, error) {
	refreshed, err := s.tokens.Refresh(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) {
			return "", &apperr.Error{Kind: apperr.KindUnauthorized, Message: msgUnauthorized, Err: err}
		}
		return "", apperr.Internal(fmt.Errorf("sign token: %w", err))
	}
	return refreshed, nil
}

// Issue signs a token for an already authenticated identity.
func (s *AuthService) Issue(identity types.Identity) (string, error) {
	token, err := s.tokens.Issue(identity)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign token: %w", err))
	}
	return token, nil
}
