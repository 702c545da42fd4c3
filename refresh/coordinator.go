package refresh

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/jrsteele09/authfront/transport"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPath is the refresh endpoint.
	DefaultPath = "/auth/refresh"
	// DefaultEntryPath is the unauthenticated entry point.
	DefaultEntryPath = "/"
)

// Navigator moves the application to target. Implementations decide what
// navigation means for them (an HTTP redirect, a CLI message).
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Coordinator owns the refresh call.
type Coordinator struct {
	refresher  *transport.Transport
	store      credentials.Store
	navigator  Navigator
	path       string
	entryPath  string
	cookieName string
	metrics    *metrics.Metrics
	group      singleflight.Group
}

// Option defines a function type to modify the Coordinator instance.
type Option func(*Coordinator)

func WithNavigator(n Navigator) Option {
	return func(c *Coordinator) {
		c.navigator = n
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Coordinator) {
		if path != "" {
			c.path = path
		}
	}
}

func WithEntryPath(path string) Option {
	return func(c *Coordinator) {
		if path != "" {
			c.entryPath = path
		}
	}
}

// WithCookieName sets the cookie a refresh response may carry the token in.
func WithCookieName(name string) Option {
	return func(c *Coordinator) {
		if name != "" {
			c.cookieName = name
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates a Coordinator. refresher must be a plain Transport;
// it is the only sender the refresh call ever goes through.
func NewCoordinator(refresher *transport.Transport, store credentials.Store, options ...Option) (*Coordinator, error) {
	if refresher == nil {
		return nil, errors.New("[NewCoordinator] refresh transport is required")
	}
	if store == nil {
		return nil, errors.New("[NewCoordinator] credential store is required")
	}

	c := &Coordinator{
		refresher:  refresher,
		store:      store,
		path:       DefaultPath,
		entryPath:  DefaultEntryPath,
		cookieName: credentials.DefaultCookieName,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// EntryPath is where the application goes when recovery is impossible.
func (c *Coordinator) EntryPath() string {
	return c.entryPath
}

// Refresh obtains a new access token and stores it. Callers that arrive while
// a refresh is in flight wait for it and share its result.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	// The shared call must not die with whichever caller started it.
	shareCtx := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do(c.path, func() (interface{}, error) {
		return c.refresh(shareCtx)
	})
	if shared {
		c.metrics.Refresh(metrics.RefreshShared)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	resp, err := c.refresher.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   c.path,
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		c.metrics.Refresh(metrics.RefreshFailure)
		return "", err
	}

	token, err := tokenFrom(resp, c.cookieName)
	if err != nil {
		c.metrics.Refresh(metrics.RefreshFailure)
		return "", err
	}
	if err := c.store.SetToken(token); err != nil {
		c.metrics.Refresh(metrics.RefreshFailure)
		return "", err
	}

	c.metrics.Refresh(metrics.RefreshSuccess)
	log.Debug().Msg("access token refreshed")
	return token, nil
}

// tokenFrom reads the new token from the JSON body, falling back to the
// access token cookie the API may set instead.
func tokenFrom(resp *transport.Response, cookieName string) (string, error) {
	var body refreshResponse
	if err := resp.Decode(&body); err == nil && body.AccessToken != "" {
		return body.AccessToken, nil
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == cookieName && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", ErrNoTokenInResponse
}

// fail handles an unrecoverable refresh: no stale credential is left behind
// and the application is sent to the entry path.
func (c *Coordinator) fail(ctx context.Context, cause error) error {
	if err := c.store.Clear(); err != nil {
		log.Err(err).Msg("failed to clear credential after refresh failure")
	}
	log.Info().Err(cause).Str("target", c.entryPath).Msg("token refresh failed")
	if c.navigator != nil {
		c.navigator.Navigate(ctx, c.entryPath)
	}
	return &RefreshFailedError{Target: c.entryPath, Err: cause}
}
