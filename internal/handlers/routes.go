package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/noteful/apiserver/internal/services"
	"github.com/sirupsen/logrus"
)

// Services are the use-cases the API routes delegate to.
type Services struct {
	Auth  *services.AuthService
	Users *services.UserService
	Tags  *services.TagService
	Notes *services.NoteService
}

// MountAPI registers the JSON error fallbacks and every /api route on r.
// Login and registration are public; everything else sits behind RequireAuth.
func MountAPI(r chi.Router, svc Services, log logrus.FieldLogger) {
	requireAuth := RequireAuth(svc.Auth, log)

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		AuthRouter(r, svc.Auth, requireAuth, log)
		r.Route("/users", func(r chi.Router) {
			UserRouter(r, svc.Users, log)
		})
		r.Route("/tags", func(r chi.Router) {
			TagRouter(r, svc.Tags, requireAuth, log)
		})
		r.Route("/notes", func(r chi.Router) {
			NoteRouter(r, svc.Notes, requireAuth, log)
		})
	})
}
