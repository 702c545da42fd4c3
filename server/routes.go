package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	page := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.HTMLMiddleWare(s.guard.Middleware)...)
	}

	// Login
	s.RegisterRouteFunc("GET "+RouteLogin+"{$}", page(s.LoginPageHandler()))
	s.RegisterRouteFunc("POST "+RouteLogin+"{$}", page(s.LoginSubmissionHandler()))
	s.RegisterRouteFunc("GET "+RouteVerifyMFA, page(s.VerifyMFAPageHandler()))
	s.RegisterRouteFunc("POST "+RouteVerifyMFA, page(s.VerifyMFASubmissionHandler()))
	s.RegisterRouteFunc("POST "+RouteLogout, page(s.LogoutHandler()))

	// Signup
	s.RegisterRouteFunc("GET "+RouteSignup, page(s.SignupPageHandler()))
	s.RegisterRouteFunc("POST "+RouteSignup, page(s.SignupSubmissionHandler()))
	s.RegisterRouteFunc("GET "+RouteConfirmAccount, page(s.ConfirmAccountPageHandler()))
	s.RegisterRouteFunc("POST "+RouteConfirmAccount, page(s.ConfirmAccountSubmissionHandler()))

	// Password management
	s.RegisterRouteFunc("GET "+RouteForgotPassword, page(s.ForgotPasswordPageHandler()))
	s.RegisterRouteFunc("POST "+RouteForgotPassword, page(s.ForgotPasswordSubmissionHandler()))
	s.RegisterRouteFunc("GET "+RouteResetPassword, page(s.ResetPasswordPageHandler()))
	s.RegisterRouteFunc("POST "+RouteResetPassword, page(s.ResetPasswordSubmissionHandler()))

	// Signed in
	s.RegisterRouteFunc("GET "+RouteHome, page(s.HomePageHandler()))
	s.RegisterRouteFunc("POST "+RouteMFASetup, page(s.MFASetupHandler()))
	s.RegisterRouteFunc("POST "+RouteMFAVerify, page(s.MFAVerifyHandler()))
	s.RegisterRouteFunc("POST "+RouteMFARevoke, page(s.MFARevokeHandler()))
	s.RegisterRouteFunc("GET "+RouteSessions, page(s.SessionsPageHandler()))
	s.RegisterRouteFunc("POST "+RouteSessionDelete, page(s.SessionDeleteHandler()))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/static/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		if err := StreamFile(w, r, filePath); err != nil {
			logError(r.Method, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func logError(method, path, error string) {
	errorString := Red + error + ResetColor
	log.Printf("[%-19s] %s %s", colouredMethod(method), path, errorString)
}
