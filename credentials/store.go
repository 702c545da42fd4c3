// Package credentials holds the access token slot shared by every API call.
//
// The token is opaque: stores persist and return it verbatim and never look
// inside. A slot is either empty or holds exactly one token; writes replace the
// whole value so a reader never observes a partial update.
package credentials

import (
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultCookieName is the origin-wide cookie carrying the access token.
	DefaultCookieName = "accessToken"
	// DefaultMaxAge mirrors the server-issued cookie lifetime.
	DefaultMaxAge = time.Hour

	tokenTypeBearer = "Bearer"
)

// Store is the single access token slot.
type Store interface {
	// Token returns the stored token, or false when the slot is empty.
	Token() (*oauth2.Token, bool)
	// SetToken replaces the stored token.
	SetToken(accessToken string) error
	// Clear empties the slot.
	Clear() error
}

func newToken(accessToken string, maxAge time.Duration, now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
	}
	if maxAge > 0 {
		tok.Expiry = now.Add(maxAge)
	}
	return tok
}

// expired reports whether the slot lifetime has passed. A zero expiry never expires.
func expired(tok *oauth2.Token, now time.Time) bool {
	return !tok.Expiry.IsZero() && !now.Before(tok.Expiry)
}
