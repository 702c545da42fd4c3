package guard

import (
	"strings"

	apperrors "github.com/jrsteele09/authfront/internal/errors"
)

// RouteClass says whether a path needs an access token.
type RouteClass int

const (
	Unclassified RouteClass = iota
	Protected
	Public
)

func (c RouteClass) String() string {
	switch c {
	case Protected:
		return "protected"
	case Public:
		return "public"
	default:
		return "unclassified"
	}
}

// Routes are the classification tables. Matching is by exact path.
type Routes struct {
	Protected []string
	Public    []string
	EntryPath string // where visitors without a token go
	HomePath  string // where visitors with a token go
}

// DefaultRoutes returns the route tables of the front end.
func DefaultRoutes() Routes {
	return Routes{
		Protected: []string{"/home", "/sessions"},
		Public:    []string{"/", "/signup", "/confirm-account", "/forgot-password", "/reset-password", "/verify-mfa"},
		EntryPath: "/",
		HomePath:  "/home",
	}
}

// Validate rejects tables that cannot be matched or that would loop.
func (r Routes) Validate() error {
	if err := validPath(r.EntryPath); err != nil {
		return apperrors.Wrapf(err, "entry path")
	}
	if err := validPath(r.HomePath); err != nil {
		return apperrors.Wrapf(err, "home path")
	}

	protected := make(map[string]struct{}, len(r.Protected))
	for _, p := range r.Protected {
		if err := validPath(p); err != nil {
			return apperrors.Wrapf(err, "protected route")
		}
		protected[p] = struct{}{}
	}
	for _, p := range r.Public {
		if err := validPath(p); err != nil {
			return apperrors.Wrapf(err, "public route")
		}
		if _, ok := protected[p]; ok {
			return apperrors.Wrapf(apperrors.ErrRouteOverlap, "%q", p)
		}
	}

	// Sending a visitor without a token to a protected entry path never settles.
	if _, ok := protected[r.EntryPath]; ok {
		return apperrors.Wrapf(apperrors.ErrInvalidRoute, "entry path %q is protected", r.EntryPath)
	}
	return nil
}

func validPath(p string) error {
	if p == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRoute, "empty path")
	}
	if !strings.HasPrefix(p, "/") {
		return apperrors.Wrapf(apperrors.ErrInvalidRoute, "%q must start with /", p)
	}
	return nil
}
