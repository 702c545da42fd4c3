package credentials

import (
	"net/http"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/authfront/internal/errors"
	"golang.org/x/oauth2"
)

var _ Store = (*CookieStore)(nil)

// CookieOptions are the attributes of the access token cookie.
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool // set in production
	MaxAge time.Duration
}

// DefaultCookieOptions returns the origin-wide, one hour, SameSite=Lax cookie.
func DefaultCookieOptions(secure bool) CookieOptions {
	return CookieOptions{
		Name:   DefaultCookieName,
		Path:   "/",
		Secure: secure,
		MaxAge: DefaultMaxAge,
	}
}

// CookieStore is a Store scoped to one browser request. It reads the token
// from the request's cookie and writes changes back as Set-Cookie headers, so
// writes must happen before the response header is sent.
type CookieStore struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions

	mu      sync.RWMutex
	current *oauth2.Token
	touched bool // current overrides the request cookie
	nowTime func() time.Time
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieStore{
		w:       w,
		r:       r,
		opts:    opts,
		nowTime: time.Now,
	}
}

// Name returns the cookie name holding the token.
func (s *CookieStore) Name() string {
	return s.opts.Name
}

func (s *CookieStore) Token() (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.touched {
		if s.current == nil {
			return nil, false
		}
		tok := *s.current
		return &tok, true
	}

	cookie, err := s.r.Cookie(s.opts.Name)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	// The browser only sends unexpired cookies; the remaining lifetime is unknown.
	return &oauth2.Token{AccessToken: cookie.Value, TokenType: tokenTypeBearer}, true
}

func (s *CookieStore) SetToken(accessToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = newToken(accessToken, s.opts.MaxAge, s.nowTime())
	s.touched = true
	http.SetCookie(s.w, s.cookie(accessToken, int(s.opts.MaxAge.Seconds())))
	return nil
}

func (s *CookieStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.touched = true
	http.SetCookie(s.w, s.cookie("", -1)) // Delete cookie
	return nil
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.Name,
		Value:    value,
		Path:     s.opts.Path,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
