package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/jrsteele09/go-session-limiter/admin"
	"github.com/jrsteele09/go-session-limiter/guard"
	"github.com/jrsteele09/go-session-limiter/internal/config"
	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Services are the collaborators the host application is built from.
type Services struct {
	Users        users.UserRepo
	Enforcer     *guard.Enforcer
	Admin        *admin.Controller
	Gatherer     prometheus.Gatherer
	HealthChecks map[string]HealthCheck
}

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	users        users.UserRepo
	enforcer     *guard.Enforcer
	admin        *admin.Controller
	sessions     sessions.Store
	gatherer     prometheus.Gatherer
	healthChecks map[string]HealthCheck
}

func New(cfg config.Config, services Services) (*Server, error) {
	switch {
	case services.Users == nil:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[Server New] user repo is required")
	case services.Enforcer == nil:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[Server New] enforcer is required")
	case services.Admin == nil:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[Server New] admin controller is required")
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session store: %w", err)
	}

	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		users:        services.Users,
		enforcer:     services.Enforcer,
		admin:        services.Admin,
		sessions:     sessionStore,
		gatherer:     services.Gatherer,
		healthChecks: services.HealthChecks,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
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
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}

// getScheme reports https for TLS requests and for proxies that say so.
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return strings.ToLower(scheme)
	}
	return "http"
}
