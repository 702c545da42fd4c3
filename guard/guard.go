// Package guard decides, before any page renders, whether a navigation may
// proceed or must be redirected based on the route and whether the visitor
// holds an access token. It only checks presence: a token is never
// validated, created or changed here.
package guard

import (
	"net/http"

	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Action int

const (
	Proceed Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "proceed"
}

// Decision is the outcome for one navigation. Target is set for Redirect.
type Decision struct {
	Action Action
	Target string
}

type Guard struct {
	protected  map[string]struct{}
	public     map[string]struct{}
	entryPath  string
	homePath   string
	cookieName string
	metrics    *metrics.Metrics
}

// Option defines a function type to modify the Guard instance.
type Option func(*Guard)

// WithCookieName sets the cookie whose presence means "has an access token".
func WithCookieName(name string) Option {
	return func(g *Guard) {
		if name != "" {
			g.cookieName = name
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func New(routes Routes, options ...Option) (*Guard, error) {
	if err := routes.Validate(); err != nil {
		return nil, err
	}

	g := &Guard{
		protected:  toSet(routes.Protected),
		public:     toSet(routes.Public),
		entryPath:  routes.EntryPath,
		homePath:   routes.HomePath,
		cookieName: credentials.DefaultCookieName,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

func (g *Guard) Classify(path string) RouteClass {
	if _, ok := g.protected[path]; ok {
		return Protected
	}
	if _, ok := g.public[path]; ok {
		return Public
	}
	return Unclassified
}

// Decide is pure: the same inputs always give the same Decision.
func (g *Guard) Decide(path string, hasAccessToken bool) Decision {
	switch g.Classify(path) {
	case Protected:
		if !hasAccessToken {
			return Decision{Action: Redirect, Target: g.entryPath}
		}
	case Public:
		if hasAccessToken && path != g.homePath {
			return Decision{Action: Redirect, Target: g.homePath}
		}
	}
	return Decision{Action: Proceed}
}

// HasAccessToken reports whether r carries a non-empty access token cookie.
func (g *Guard) HasAccessToken(r *http.Request) bool {
	c, err := r.Cookie(g.cookieName)
	return err == nil && c.Value != ""
}

// Middleware runs Decide for every request before next sees it.
func (g *Guard) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		decision := g.Decide(path, g.HasAccessToken(r))
		g.metrics.GuardDecision(g.Classify(path).String(), decision.Action.String())

		if decision.Action == Redirect {
			log.Debug().Str("path", path).Str("target", decision.Target).Msg("route guard redirect")
			redirect(w, r, decision.Target)
			return
		}
		next(w, r)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
