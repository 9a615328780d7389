package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-bookstore-api/auth"
	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/jrsteele09/go-bookstore-api/internal/config"
	"github.com/jrsteele09/go-bookstore-api/rentals"
	"github.com/jrsteele09/go-bookstore-api/token"
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Services are the domain components the HTTP layer exposes.
type Services struct {
	Users   users.Repo
	Auth    *auth.Service
	Issuer  *token.Issuer
	Catalog *catalog.Service
	Ledger  *rentals.Ledger

	// Health is probed by /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	router  chi.Router
	routes  []string
	config  config.Config
	users   users.Repo
	auth    *auth.Service
	issuer  *token.Issuer
	catalog *catalog.Service
	ledger  *rentals.Ledger
	health  func(ctx context.Context) error

	loginLimiter *RateLimiter
}

func New(ctx context.Context, config config.Config, services Services) (*Server, error) {
	if services.Users == nil || services.Auth == nil || services.Issuer == nil || services.Catalog == nil || services.Ledger == nil {
		return nil, errors.New("[Server New] users, auth, issuer, catalog and ledger are required")
	}

	s := &Server{
		env:     config.GetEnv(),
		router:  chi.NewRouter(),
		config:  config,
		users:   services.Users,
		auth:    services.Auth,
		issuer:  services.Issuer,
		catalog: services.Catalog,
		ledger:  services.Ledger,
		health:  services.Health,
	}

	if config.GetEnableRateLimiting() {
		s.loginLimiter = NewRateLimiter(ctx, config.GetLoginRatePerSecond(), config.GetLoginBurst())
	}

	if _, err := s.InitialiseSystem(ctx); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.router.Use(
		hlog.NewHandler(log.Logger),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
		hlog.AccessHandler(accessLog),
		s.preflight,
	)
	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteHandler registers handler for a "METHOD /path" pattern. A pattern without a method
// matches every method.
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		s.router.Handle(pattern, handler)
		return
	}
	s.router.Method(method, path, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(pattern, http.HandlerFunc(handler))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	var event *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError:
		event = hlog.FromRequest(r).Error()
	case status >= http.StatusBadRequest:
		event = hlog.FromRequest(r).Warn()
	default:
		event = hlog.FromRequest(r).Info()
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// preflight answers CORS OPTIONS requests for API routes before routing, whatever methods the route has.
func (s *Server) preflight(next http.Handler) http.Handler {
	answer := ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && strings.HasPrefix(r.URL.Path, "/api/") {
			answer(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
