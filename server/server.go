package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/guard"
	"github.com/jrsteele09/authfront/internal/config"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PRODUCTION")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	guard      *guard.Guard
	metrics    *metrics.Metrics
	cookieOpts credentials.CookieOptions
	upstream   http.RoundTripper
	pages      *pageTemplates
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithMetrics shares a metrics registry with the caller.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithUpstreamRoundTripper replaces the HTTP transport used to reach the API
// (primarily for testing).
func WithUpstreamRoundTripper(rt http.RoundTripper) Option {
	return func(s *Server) {
		s.upstream = rt
	}
}

func New(cfg config.Config, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		cookieOpts: credentials.CookieOptions{
			Name:   cfg.GetAccessTokenCookie(),
			Path:   "/",
			Secure: cfg.IsProduction(),
			MaxAge: cfg.GetAccessTokenMaxAge(),
		},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	routes := guard.Routes{
		Protected: cfg.GetProtectedRoutes(),
		Public:    cfg.GetPublicRoutes(),
		EntryPath: cfg.GetEntryPath(),
		HomePath:  cfg.GetHomePath(),
	}
	g, err := guard.New(routes, guard.WithCookieName(s.cookieOpts.Name), guard.WithMetrics(s.metrics))
	if err != nil {
		return nil, fmt.Errorf("[Server New] invalid route tables: %w", err)
	}
	s.guard = g

	if s.pages, err = parsePages(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s.initRoutes()
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
	log.Printf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
