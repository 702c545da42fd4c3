// Package transport performs calls against the authentication API: a fixed
// base URL, ambient credentials and a bounded timeout. It reports failures and
// never retries or redirects; that policy belongs to the caller.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/authfront/credentials"
	apperrors "github.com/jrsteele09/authfront/internal/errors"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every call.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 4 << 20

// Sender sends a captured request.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

var _ Sender = (*Transport)(nil)

// Transport is the plain sender. It never triggers token recovery.
type Transport struct {
	baseURL    string
	client     *http.Client
	store      credentials.Store
	cookieName string
	metrics    *metrics.Metrics
}

// Option defines a function type to modify the Transport instance.
type Option func(*Transport)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// WithJar sets the jar holding the ambient cookies sent with every call.
func WithJar(jar http.CookieJar) Option {
	return func(t *Transport) {
		t.client.Jar = jar
	}
}

// WithRoundTripper replaces the underlying HTTP transport (primarily for testing).
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *Transport) {
		t.client.Transport = rt
	}
}

// WithCookieName sets the cookie the access token is attached as.
func WithCookieName(name string) Option {
	return func(t *Transport) {
		if name != "" {
			t.cookieName = name
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// New creates a Transport rooted at baseURL that reads credentials from store.
func New(baseURL string, store credentials.Store, options ...Option) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidBaseURL, "[transport New] %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("[transport New] credential store is required")
	}

	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store:      store,
		cookieName: credentials.DefaultCookieName,
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// Send performs req. Any status >= 400 and any missing response is returned
// as a *TransportError.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, apperrors.ErrNilRequest
	}

	httpReq, err := t.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.metrics.Upstream(req.Method, 0, time.Since(start))
		log.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("upstream call failed")
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	t.metrics.Upstream(req.Method, resp.StatusCode, elapsed)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("read body: %w", err)}
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("upstream call")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &TransportError{
			Method: req.Method,
			Path:   req.Path,
			Status: resp.StatusCode,
			Body:   body,
		}
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func (t *Transport) build(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("[Transport Send] build %s %s: %w", req.Method, req.Path, err)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}

	if tok, ok := t.store.Token(); ok {
		tok.SetAuthHeader(httpReq)
		httpReq.AddCookie(&http.Cookie{Name: t.cookieName, Value: tok.AccessToken})
	}
	return httpReq, nil
}
