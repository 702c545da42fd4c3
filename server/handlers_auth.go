package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/authfront/api"
	"github.com/jrsteele09/authfront/authclient"
	"github.com/rs/zerolog/log"
)

func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageLogin, PageData{Title: "Sign in"})
	}
}

func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		email := formValue(r, "email")
		resp, err := c.API.Login(r.Context(), api.LoginRequest{
			Email:    email,
			Password: r.FormValue("password"),
		})
		if err != nil {
			redirectAPIError(w, r, err, RouteLogin, nil)
			return
		}
		if resp.MFARequired {
			redirectWith(w, r, RouteVerifyMFA, url.Values{"email": {email}})
			return
		}
		redirectSuccess(w, r, s.config.GetHomePath())
	})
}

func (s *Server) VerifyMFAPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		s.render(w, r, http.StatusOK, pageVerifyMFA, PageData{Title: "Two-factor authentication", Data: email})
	}
}

func (s *Server) VerifyMFASubmissionHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		email := formValue(r, "email")
		_, err := c.API.VerifyMFALogin(r.Context(), api.MFALoginRequest{
			Code:  formValue(r, "code"),
			Email: email,
		})
		if err != nil {
			redirectAPIError(w, r, err, RouteVerifyMFA, url.Values{"email": {email}})
			return
		}
		redirectSuccess(w, r, s.config.GetHomePath())
	})
}

// LogoutHandler ends the session upstream. The local credential is cleared
// even when the API call fails.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		if err := c.API.Logout(r.Context()); err != nil {
			log.Warn().Err(err).Msg("logout call failed")
		}
		redirectWithMessage(w, r, s.config.GetEntryPath(), "You have been signed out")
	})
}

func (s *Server) SignupPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageSignup, PageData{Title: "Sign up"})
	}
}

func (s *Server) SignupSubmissionHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		resp, err := c.API.Register(r.Context(), api.RegisterRequest{
			Name:            formValue(r, "name"),
			Email:           formValue(r, "email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
		})
		if err != nil {
			redirectAPIError(w, r, err, RouteSignup, nil)
			return
		}
		redirectWithMessage(w, r, RouteConfirmAccount, resp.Message)
	})
}

func (s *Server) ConfirmAccountPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageConfirmAccount, PageData{Title: "Confirm account", Data: r.URL.Query().Get("code")})
	}
}

func (s *Server) ConfirmAccountSubmissionHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		resp, err := c.API.VerifyEmail(r.Context(), api.VerifyEmailRequest{Code: formValue(r, "code")})
		if err != nil {
			redirectAPIError(w, r, err, RouteConfirmAccount, nil)
			return
		}
		redirectWithMessage(w, r, RouteLogin, resp.Message)
	})
}

func (s *Server) ForgotPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageForgotPassword, PageData{Title: "Forgot password"})
	}
}

func (s *Server) ForgotPasswordSubmissionHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		resp, err := c.API.ForgotPassword(r.Context(), api.ForgotPasswordRequest{Email: formValue(r, "email")})
		if err != nil {
			redirectAPIError(w, r, err, RouteForgotPassword, nil)
			return
		}
		redirectWithMessage(w, r, RouteForgotPassword, resp.Message)
	})
}

func (s *Server) ResetPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			redirectWithError(w, r, RouteForgotPassword, "The reset link is invalid or has expired")
			return
		}
		s.render(w, r, http.StatusOK, pageResetPassword, PageData{Title: "Reset password", Data: code})
	}
}

func (s *Server) ResetPasswordSubmissionHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		code := formValue(r, "code")
		resp, err := c.API.ResetPassword(r.Context(), api.ResetPasswordRequest{
			Password:         r.FormValue("password"),
			VerificationCode: code,
		})
		if err != nil {
			redirectAPIError(w, r, err, RouteResetPassword, url.Values{"code": {code}})
			return
		}
		redirectWithMessage(w, r, RouteLogin, resp.Message)
	})
}
