package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/auth"
	"github.com/noteful/apiserver/internal/events"
	"github.com/noteful/apiserver/internal/store"
	"github.com/noteful/apiserver/types"
)

const (
	minUsernameLength = 1
	minPasswordLength = 8
	maxPasswordLength = 72
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates registration.
type UserService struct {
	repo   UserRepository
	hasher *auth.Hasher
	events events.Publisher
}

func NewUserService(repo UserRepository, hasher *auth.Hasher, publisher events.Publisher) *UserService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &UserService{repo: repo, hasher: hasher, events: publisher}
}

// RegistrationPayload is the decoded JSON request body. Values keep their JSON
// types so the type checks can run.
type RegistrationPayload map[string]any

// Register validates the payload, stores the user and returns its identity.
// Checks run in a fixed order and the first failure wins.
func (s *UserService) Register(ctx context.Context, payload RegistrationPayload) (types.Identity, error) {
	if err := validateRegistration(payload); err != nil {
		return types.Identity{}, err
	}

	username := payload["username"].(string)
	password := payload["password"].(string)
	fullname, _ := payload["fullname"].(string)

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return types.Identity{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Fullname:     strings.TrimSpace(fullname),
		PasswordHash: digest,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Identity{}, apperr.BadRequest("Username already taken")
		}
		return types.Identity{}, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	identity := user.Identity()
	s.events.Publish(ctx, events.New(events.UserRegistered, identity.ID, identity))
	return identity, nil
}

func validateRegistration(payload RegistrationPayload) error {
	for _, field := range []string{"username", "password"} {
		if _, ok := payload[field]; !ok {
			return apperr.Validation(fmt.Sprintf("Missing '%s' in request body", field))
		}
	}

	for _, field := range []string{"username", "password", "fullname"} {
		value, ok := payload[field]
		if !ok {
			continue
		}
		if _, isString := value.(string); !isString {
			return apperr.Validation(fmt.Sprintf("Field: '%s' is not type String", field))
		}
	}

	username := payload["username"].(string)
	password := payload["password"].(string)

	for _, value := range []string{username, password} {
		if strings.TrimSpace(value) != value {
			return apperr.Validation("Cannot start or end with whitespace")
		}
	}

	if utf8.RuneCountInString(username) < minUsernameLength {
		return apperr.Validation(fmt.Sprintf("Field: 'username' must be at least %d characters long", minUsernameLength))
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperr.Validation(fmt.Sprintf("Field: 'password' must be at least %d characters long", minPasswordLength))
	}
	// bcrypt reads at most 72 bytes, so multi-byte passwords are bounded by bytes too.
	if utf8.RuneCountInString(password) > maxPasswordLength || len(password) > maxPasswordLength {
		return apperr.Validation(fmt.Sprintf("Field: 'password' must be at most %d characters long", maxPasswordLength))
	}
	return nil
}
