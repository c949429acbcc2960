package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/services"
	"github.com/sirupsen/logrus"
)

// UserHandler provides the registration endpoint.
type UserHandler struct {
	users *services.UserService
	log   logrus.FieldLogger
}

func NewUserHandler(userService *services.UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: userService, log: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, log logrus.FieldLogger) {
	handler := NewUserHandler(userService, log)

	r.Post("/", handler.Register)
}

// Register creates an account. The body is decoded loosely so the service can
// report fields of the wrong JSON type.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeRegistration(r.Body)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	identity, err := h.users.Register(r.Context(), payload)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.Header().Set("Location", locationFor(r, identity.ID))
	writeJSON(w, http.StatusCreated, identity)
}

// decodeRegistration treats an empty body or a top-level array as an object
// with no fields, so the missing-field checks report them. Any other
// non-object body is invalid JSON.
func decodeRegistration(body io.Reader) (services.RegistrationPayload, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return services.RegistrationPayload{}, nil
		}
		return nil, apperr.BadRequest(msgInvalidJSON)
	}

	switch trimmed := bytes.TrimSpace(raw); {
	case bytes.HasPrefix(trimmed, []byte("[")):
		return services.RegistrationPayload{}, nil
	case !bytes.HasPrefix(trimmed, []byte("{")):
		return nil, apperr.BadRequest(msgInvalidJSON)
	}

	var payload services.RegistrationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperr.BadRequest(msgInvalidJSON)
	}
	return payload, nil
}
