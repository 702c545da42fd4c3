package credentials

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

var _ http.CookieJar = (*TokenJar)(nil)

// TokenJar wraps a regular cookie jar for clients that are not a browser
// relay (the CLI). The access token cookie goes to the Store; everything else
// goes to the inner jar.
type TokenJar struct {
	inner       http.CookieJar
	store       Store
	tokenCookie string
}

func NewTokenJar(inner http.CookieJar, store Store, cookieName string) *TokenJar {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &TokenJar{inner: inner, store: store, tokenCookie: cookieName}
}

func (j *TokenJar) Cookies(u *url.URL) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range j.inner.Cookies(u) {
		if c.Name != j.tokenCookie {
			out = append(out, c)
		}
	}
	return out
}

func (j *TokenJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	rest := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name != j.tokenCookie {
			rest = append(rest, c)
			continue
		}
		var err error
		if deleted(c) {
			err = j.store.Clear()
		} else {
			err = j.store.SetToken(c.Value)
		}
		if err != nil {
			log.Err(err).Msg("failed to store upstream access token")
		}
	}
	if len(rest) > 0 {
		j.inner.SetCookies(u, rest)
	}
}
