package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/auth"
	"github.com/noteful/apiserver/internal/store/memstore"
	"github.com/noteful/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*UserService, *memstore.Store) {
	t.Helper()
	ms := memstore.New()
	return NewUserService(ms.Users(), auth.NewHasher(bcrypt.MinCost), nil), ms
}

func requireAppErr(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, message, appErr.Message)
}

func TestRegister_Success(t *testing.T) {
	svc, ms := newUserService(t)

	identity, err := svc.Register(context.Background(), RegistrationPayload{
		"username": "exampleUser",
		"password": "examplePass",
		"fullname": " Example User ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "exampleUser", identity.Username)
	assert.Equal(t, "Example User", identity.Fullname)

	stored, err := ms.Users().GetByUsername(context.Background(), "exampleUser")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, stored.ID)
	assert.Equal(t, "Example User", stored.Fullname)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("examplePass")))
}

func TestRegister_FullnameOptional(t *testing.T) {
	svc, _ := newUserService(t)

	identity, err := svc.Register(context.Background(), RegistrationPayload{
		"username": "u",
		"password": "examplePass",
	})
	require.NoError(t, err)
	assert.Equal(t, "", identity.Fullname)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		payload RegistrationPayload
		message string
	}{
		{
			name:    "missing username",
			payload: RegistrationPayload{"password": "examplePass", "fullname": "Example User"},
			message: "Missing 'username' in request body",
		},
		{
			name:    "missing password",
			payload: RegistrationPayload{"username": "exampleUser", "fullname": "Example User"},
			message: "Missing 'password' in request body",
		},
		{
			name:    "missing both reports username first",
			payload: RegistrationPayload{},
			message: "Missing 'username' in request body",
		},
		{
			name:    "non-string username",
			payload: RegistrationPayload{"username": float64(1234), "password": "examplePass"},
			message: "Field: 'username' is not type String",
		},
		{
			name:    "null username",
			payload: RegistrationPayload{"username": nil, "password": "examplePass"},
			message: "Field: 'username' is not type String",
		},
		{
			name:    "non-string password",
			payload: RegistrationPayload{"username": "exampleUser", "password": float64(1234)},
			message: "Field: 'password' is not type String",
		},
		{
			name:    "non-string fullname",
			payload: RegistrationPayload{"username": "exampleUser", "password": "examplePass", "fullname": true},
			message: "Field: 'fullname' is not type String",
		},
		{
			name:    "non-trimmed username",
			payload: RegistrationPayload{"username": " exampleUser ", "password": "examplePass"},
			message: "Cannot start or end with whitespace",
		},
		{
			name:    "non-trimmed password",
			payload: RegistrationPayload{"username": "exampleUser", "password": "examplePass\t"},
			message: "Cannot start or end with whitespace",
		},
		{
			name:    "whitespace wins over length",
			payload: RegistrationPayload{"username": "exampleUser", "password": " short"},
			message: "Cannot start or end with whitespace",
		},
		{
			name:    "empty username",
			payload: RegistrationPayload{"username": "", "password": "examplePass"},
			message: "Field: 'username' must be at least 1 characters long",
		},
		{
			name:    "password too short",
			payload: RegistrationPayload{"username": "exampleUser", "password": strings.Repeat("a", 7)},
			message: "Field: 'password' must be at least 8 characters long",
		},
		{
			name:    "password too long",
			payload: RegistrationPayload{"username": "exampleUser", "password": strings.Repeat("a", 73)},
			message: "Field: 'password' must be at most 72 characters long",
		},
		{
			name:    "multi-byte password over the bcrypt limit",
			payload: RegistrationPayload{"username": "exampleUser", "password": strings.Repeat("é", 40)},
			message: "Field: 'password' must be at most 72 characters long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ms := newUserService(t)

			_, err := svc.Register(context.Background(), tt.payload)
			requireAppErr(t, err, apperr.KindValidation, tt.message)

			users, _ := ms.Users().GetByUsername(context.Background(), "exampleUser")
			assert.Empty(t, users.ID, "nothing is stored on validation failure")
		})
	}
}

func TestRegister_PasswordBoundaries(t *testing.T) {
	for _, length := range []int{8, 72} {
		svc, _ := newUserService(t)

		_, err := svc.Register(context.Background(), RegistrationPayload{
			"username": "exampleUser",
			"password": strings.Repeat("p", length),
		})
		assert.NoError(t, err, "length %d", length)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, ms := newUserService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegistrationPayload{
		"username": "exampleUser",
		"password": "examplePass",
		"fullname": "First",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegistrationPayload{
		"username": "exampleUser",
		"password": "otherPassword",
		"fullname": "Second",
	})
	requireAppErr(t, err, apperr.KindBadRequest, "Username already taken")

	stored, err := ms.Users().GetByUsername(ctx, "exampleUser")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "First", stored.Fullname)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("examplePass")))
}

type failingUsers struct{ err error }

func (f failingUsers) GetByUsername(context.Context, string) (types.User, error) {
	return types.User{}, f.err
}

func (f failingUsers) Create(context.Context, types.User) (types.User, error) {
	return types.User{}, f.err
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	svc := NewUserService(failingUsers{err: errors.New("db down")}, auth.NewHasher(bcrypt.MinCost), nil)

	_, err := svc.Register(context.Background(), RegistrationPayload{
		"username": "exampleUser",
		"password": "examplePass",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
