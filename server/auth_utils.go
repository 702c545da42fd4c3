package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/authfront/api"
	"github.com/jrsteele09/authfront/authclient"
	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/refresh"
	"github.com/jrsteele09/authfront/transport"
	"github.com/rs/zerolog/log"
)

const genericErrorMessage = "Something went wrong. Please try again."

// clientFor builds the client context for one browser request: the token
// lives in the browser's cookie, and other API cookies are relayed through
// the request jar.
func (s *Server) clientFor(w http.ResponseWriter, r *http.Request) (*authclient.Client, error) {
	store := credentials.NewCookieStore(w, r, s.cookieOpts)
	jar := credentials.NewRequestJar(w, r, store, s.cookieOpts)

	return authclient.New(authclient.Config{
		BaseURL:      s.config.GetAPIBaseURL(),
		Timeout:      s.config.GetAPITimeout(),
		RefreshPath:  s.config.GetRefreshPath(),
		EntryPath:    s.config.GetEntryPath(),
		CookieName:   s.cookieOpts.Name,
		Jar:          jar,
		Navigator:    pageNavigator(r),
		Metrics:      s.metrics,
		RoundTripper: s.upstream,
	}, store)
}

// pageNavigator only records the decision; the handler turns the returned
// RefreshFailedError into the redirect.
func pageNavigator(r *http.Request) refresh.Navigator {
	return refresh.NavigatorFunc(func(_ context.Context, target string) {
		log.Info().Str("path", r.URL.Path).Str("target", target).Msg("session could not be refreshed")
	})
}

// withClient resolves the request's client or fails the request.
func (s *Server) withClient(next func(http.ResponseWriter, *http.Request, *authclient.Client)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.clientFor(w, r)
		if err != nil {
			log.Err(err).Msg("failed to build API client")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		next(w, r, c)
	}
}

// errorMessage turns an API error into banner text.
func errorMessage(err error) string {
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		return verr.Message()
	}
	var te *transport.TransportError
	if errors.As(err, &te) {
		return te.Message()
	}
	log.Err(err).Msg("unexpected API error")
	return genericErrorMessage
}

// redirectAPIError sends the browser back to path with the error as a
// banner, or to the entry path when the session is gone.
func redirectAPIError(w http.ResponseWriter, r *http.Request, err error, path string, params url.Values) {
	var rf *refresh.RefreshFailedError
	if errors.As(err, &rf) {
		redirectSuccess(w, r, rf.Target)
		return
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("error", errorMessage(err))
	redirectWith(w, r, path, params)
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectWith(w, r, path, url.Values{"error": {errorMsg}})
}

// redirectWithMessage shows a success banner on the target page
func redirectWithMessage(w http.ResponseWriter, r *http.Request, path, message string) {
	redirectWith(w, r, path, url.Values{"message": {message}})
}

func redirectWith(w http.ResponseWriter, r *http.Request, path string, params url.Values) {
	fullPath := path
	if len(params) > 0 {
		fullPath += "?" + params.Encode()
	}
	redirectSuccess(w, r, fullPath)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// formValue returns the trimmed form field.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
