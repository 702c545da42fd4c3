// Package api is a typed client for the authentication API. Every call goes
// through a transport.Sender, so a client built on the refresh decorator
// recovers expired tokens transparently.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/transport"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathVerifyEmail    = "/auth/verify/email"
	PathForgotPassword = "/auth/forgot/password"
	PathResetPassword  = "/auth/password/reset"
	PathLogout         = "/auth/logout"
	PathMFAVerifyLogin = "/mfa/verify-login"
	PathMFASetup       = "/mfa/setup"
	PathMFAVerify      = "/mfa/verify"
	PathMFARevoke      = "/mfa/revoke"
)

type Client struct {
	sender transport.Sender
	store  credentials.Store
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithStore lets the client persist tokens issued in a response body and
// drop the token on logout. Tokens issued as cookies reach the store through
// the transport's jar instead.
func WithStore(store credentials.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

func NewClient(sender transport.Sender, options ...Option) (*Client, error) {
	if sender == nil {
		return nil, errors.New("[NewClient] sender is required")
	}
	c := &Client{sender: sender}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// call validates payload, sends it and decodes the response into out.
// Transport and refresh errors are returned as they are.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	if payload != nil {
		if err := defaultValidator.Struct(payload); err != nil {
			return err
		}
	}

	req, err := transport.NewRequest(method, path, payload)
	if err != nil {
		return err
	}
	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return pkgerrors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func (c *Client) keepToken(token string) {
	if c.store == nil || token == "" {
		return
	}
	if err := c.store.SetToken(token); err != nil {
		log.Err(err).Msg("failed to store issued access token")
	}
}

// Login starts a session. When MFARequired is set no token has been issued
// yet and the login continues with VerifyMFALogin.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.call(ctx, http.MethodPost, PathLogin, &in, &out); err != nil {
		return nil, err
	}
	c.keepToken(out.AccessToken)
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathRegister, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyEmail(ctx context.Context, in VerifyEmailRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathVerifyEmail, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, in ForgotPasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathForgotPassword, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetPassword(ctx context.Context, in ResetPasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathResetPassword, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyMFALogin(ctx context.Context, in MFALoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.call(ctx, http.MethodPost, PathMFAVerifyLogin, &in, &out); err != nil {
		return nil, err
	}
	c.keepToken(out.AccessToken)
	return &out, nil
}

// Logout ends the session. The local credential is dropped even when the
// API call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, PathLogout, nil, nil)
	if c.store != nil {
		if clearErr := c.store.Clear(); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear credential on logout")
		}
	}
	return err
}

func (c *Client) MFASetup(ctx context.Context) (*MFASetup, error) {
	var out MFASetup
	if err := c.call(ctx, http.MethodGet, PathMFASetup, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyMFA(ctx context.Context, in VerifyMFARequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathMFAVerify, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevokeMFA(ctx context.Context) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPut, PathMFARevoke, &struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
