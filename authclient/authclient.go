// Package authclient assembles the per-user client context: a credential
// store, the plain and refresh transports, the refresh coordinator and the
// typed API clients built on the decorated sender. Nothing here is global;
// every caller builds its own.
package authclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/authfront/api"
	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/jrsteele09/authfront/refresh"
	"github.com/jrsteele09/authfront/sessions"
	"github.com/jrsteele09/authfront/transport"
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RefreshPath string
	EntryPath   string
	CookieName  string
	Jar         http.CookieJar
	Navigator   refresh.Navigator
	Metrics     *metrics.Metrics

	// RoundTripper replaces the HTTP transport (primarily for testing).
	RoundTripper http.RoundTripper
}

type Client struct {
	Store       credentials.Store
	Sender      transport.Sender
	Coordinator *refresh.Coordinator
	API         *api.Client
	Sessions    *sessions.Directory
}

func New(cfg Config, store credentials.Store) (*Client, error) {
	if store == nil {
		return nil, errors.New("[authclient New] credential store is required")
	}

	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithCookieName(cfg.CookieName),
		transport.WithMetrics(cfg.Metrics),
	}
	if cfg.Jar != nil {
		opts = append(opts, transport.WithJar(cfg.Jar))
	}
	if cfg.RoundTripper != nil {
		opts = append(opts, transport.WithRoundTripper(cfg.RoundTripper))
	}

	// Two distinct transports: the refresh call never goes through recovery.
	plain, err := transport.New(cfg.BaseURL, store, opts...)
	if err != nil {
		return nil, err
	}
	refresher, err := transport.New(cfg.BaseURL, store, opts...)
	if err != nil {
		return nil, err
	}

	coordinator, err := refresh.NewCoordinator(refresher, store,
		refresh.WithRefreshPath(cfg.RefreshPath),
		refresh.WithEntryPath(cfg.EntryPath),
		refresh.WithCookieName(cfg.CookieName),
		refresh.WithNavigator(cfg.Navigator),
		refresh.WithMetrics(cfg.Metrics),
	)
	if err != nil {
		return nil, err
	}

	sender := refresh.WithAuthRefresh(plain, coordinator)
	apiClient, err := api.NewClient(sender, api.WithStore(store))
	if err != nil {
		return nil, err
	}
	directory, err := sessions.NewDirectory(sender)
	if err != nil {
		return nil, err
	}

	return &Client{
		Store:       store,
		Sender:      sender,
		Coordinator: coordinator,
		API:         apiClient,
		Sessions:    directory,
	}, nil
}
