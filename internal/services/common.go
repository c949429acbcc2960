package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/store"
)

const (
	MsgInvalidID = "The `id` is not valid"
	MsgNotFound  = "Not Found"
)

// CanonicalID parses a 36-character UUID and returns it in the lowercase
// form the stores hold. The second result is false when id is not a UUID.
func CanonicalID(id string) (string, bool) {
	if len(id) != 36 {
		return "", false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func mapLookupError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(MsgNotFound)
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
