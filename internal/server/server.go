package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/noteful/apiserver/config"
	"github.com/noteful/apiserver/internal/auth"
	"github.com/noteful/apiserver/internal/db"
	"github.com/noteful/apiserver/internal/events"
	"github.com/noteful/apiserver/internal/handlers"
	"github.com/noteful/apiserver/internal/metrics"
	"github.com/noteful/apiserver/internal/mq"
	"github.com/noteful/apiserver/internal/services"
	"github.com/noteful/apiserver/internal/store"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	log        *logrus.Logger
}

// Dependencies are the collaborators the router needs. Tests fill them with
// in-memory implementations.
type Dependencies struct {
	Users   services.UserRepository
	Tags    services.TagRepository
	Notes   services.NoteRepository
	Health  handlers.Pinger
	Hasher  *auth.Hasher
	Tokens  *auth.TokenManager
	Events  events.Publisher
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

// New connects to the database and the optional event broker and builds
// the HTTP server. Any failure here is fatal for the caller.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := NewLogger(cfg.LogLevel)

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	m.RegisterDB(dbConn, cfg.Database.DBName)

	var (
		broker    *mq.MQ
		publisher events.Publisher = events.Nop{}
	)
	if cfg.Events.Backend != "" {
		broker, err = mq.Open(ctx, cfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		publisher = events.NewBrokerPublisher(broker, cfg.Events.Topic, log).WithObserver(m.ObserveEvent)
		log.WithFields(logrus.Fields{"backend": broker.Name(), "topic": cfg.Events.Topic}).Info("publishing domain events")
	}

	router := NewRouter(Dependencies{
		Users:   store.NewUserRepository(dbConn),
		Tags:    store.NewTagRepository(dbConn),
		Notes:   store.NewNoteRepository(dbConn),
		Health:  dbConn,
		Hasher:  auth.NewHasher(cfg.Auth.BcryptCost),
		Tokens:  tokens,
		Events:  publisher,
		Metrics: m,
		Log:     log,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		log:        log,
	}, nil
}

// NewRouter mounts the API under /api plus the operational endpoints.
func NewRouter(deps Dependencies) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(deps.Log),
		middleware.Recoverer,
		deps.Metrics.Middleware,
		middleware.Timeout(requestTimeout),
	)

	router.Get("/healthz", handlers.Healthz(deps.Health, deps.Log))
	router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	handlers.MountAPI(router, handlers.Services{
		Auth:  services.NewAuthService(deps.Users, deps.Hasher, deps.Tokens),
		Users: services.NewUserService(deps.Users, deps.Hasher, deps.Events),
		Tags:  services.NewTagService(deps.Tags, deps.Events),
		Notes: services.NewNoteService(deps.Notes, deps.Tags, deps.Events),
	}, deps.Log)

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if closeErr := s.broker.Close(); closeErr != nil {
			s.log.WithError(closeErr).Warn("failed to close event broker")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
