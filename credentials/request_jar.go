package credentials

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var _ http.CookieJar = (*RequestJar)(nil)

// RequestJar gives an upstream HTTP client the browser's credentials for the
// span of one browser request. Cookies sent by the browser are offered to the
// API, and cookies the API sets are relayed back to the browser. The access
// token cookie is excluded in both directions; it lives in the Store.
type RequestJar struct {
	w           http.ResponseWriter
	r           *http.Request
	store       Store
	tokenCookie string
	secure      bool

	mu  sync.Mutex
	set map[string]*http.Cookie // cookies set upstream during this request
}

func NewRequestJar(w http.ResponseWriter, r *http.Request, store Store, opts CookieOptions) *RequestJar {
	name := opts.Name
	if name == "" {
		name = DefaultCookieName
	}
	return &RequestJar{
		w:           w,
		r:           r,
		store:       store,
		tokenCookie: name,
		secure:      opts.Secure,
		set:         make(map[string]*http.Cookie),
	}
}

// Cookies returns the browser's cookies, overlaid with any set upstream since.
func (j *RequestJar) Cookies(_ *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	seen := make(map[string]bool)
	var out []*http.Cookie
	for _, c := range j.set {
		if deleted(c) {
			seen[c.Name] = true
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
		seen[c.Name] = true
	}
	for _, c := range j.r.Cookies() {
		if c.Name == j.tokenCookie || seen[c.Name] {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
		seen[c.Name] = true
	}
	return out
}

// SetCookies routes the access token into the Store and relays the rest.
func (j *RequestJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c.Name == j.tokenCookie {
			j.storeToken(c)
			continue
		}

		relayed := *c
		// The API's host and paths are not the browser's.
		relayed.Domain = ""
		relayed.Path = "/"
		if j.secure {
			relayed.Secure = true
		}
		http.SetCookie(j.w, &relayed)
		j.set[c.Name] = &relayed
		log.Debug().Str("cookie", c.Name).Str("host", u.Host).Msg("relayed upstream cookie")
	}
}

func (j *RequestJar) storeToken(c *http.Cookie) {
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

// deleted reports whether a Set-Cookie instructs removal.
func deleted(c *http.Cookie) bool {
	return c.Value == "" || c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now()))
}
