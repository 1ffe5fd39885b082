package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/auth"
	"github.com/hongminglow/flous-cash-be/internal/config"
	"github.com/hongminglow/flous-cash-be/internal/http/handlers"
	"github.com/hongminglow/flous-cash-be/internal/middleware"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Users    storage.UserStore
	Tokens   *auth.TokenManager
	Denylist *auth.Denylist
	Services handlers.Lifecycle
	Log      *zap.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	return &Server{inner: &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Submit may spend RenderTimeout on the contract before answering.
		WriteTimeout: cfg.RenderTimeout + cfg.NotifyTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}}
}

// Handler builds the routed, middleware-wrapped handler.
func Handler(cfg config.Config, deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)

	authn := middleware.NewAuthenticator(deps.Tokens, deps.Denylist, deps.Users, log)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, deps.Denylist, log)
	authHandler.Register(mux)
	authHandler.RegisterProtected(mux, authn.Require)

	handlers.NewServiceHandler(deps.Services, log).Register(mux, authn.Require)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
