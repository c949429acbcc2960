package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/noteful/apiserver/internal/services"
	"github.com/noteful/apiserver/types"
	"github.com/sirupsen/logrus"
)

const msgUnauthorized = "Unauthorized"

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(token string) (types.Identity, error)
}

// AuthHandler provides the login and refresh endpoints.
type AuthHandler struct {
	auth *services.AuthService
	log  logrus.FieldLogger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{auth: authService, log: log}
}

// AuthRouter registers auth routes on the given router. Refresh sits behind
// the authorization gate, so only a currently valid token can be renewed.
func AuthRouter(
	r chi.Router,
	authService *services.AuthService,
	authMiddleware func(http.Handler) http.Handler,
	log logrus.FieldLogger,
) {
	handler := NewAuthHandler(authService, log)

	r.Post("/login", handler.Login)
	r.With(authMiddleware).Post("/refresh", handler.Refresh)
}

// RequireAuth enforces bearer authentication and injects the caller's
// identity into the request context.
func RequireAuth(authenticator Authenticator, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			identity, err := authenticator.Authenticate(tokenString)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AuthToken: token})
}

// Refresh re-issues the bearer token the gate already accepted.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	current, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	token, err := h.auth.Refresh(current)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AuthToken: token})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AuthToken string `json:"authToken"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
