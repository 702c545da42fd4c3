package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/authfront/api"
	"github.com/jrsteele09/authfront/authclient"
	"github.com/jrsteele09/authfront/refresh"
	"github.com/jrsteele09/authfront/users"
)

type homeView struct {
	User  *users.User
	Setup *api.MFASetup
}

// renderPageError shows a page whose data could not be loaded. A lost
// session goes to the entry path; anything else renders the page with a
// banner, never a redirect back to itself.
func (s *Server) renderPageError(w http.ResponseWriter, r *http.Request, name, title string, err error) {
	var rf *refresh.RefreshFailedError
	if errors.As(err, &rf) {
		redirectSuccess(w, r, rf.Target)
		return
	}
	s.render(w, r, http.StatusBadGateway, name, PageData{Title: title, Error: errorMessage(err)})
}

func (s *Server) HomePageHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		current, err := c.Sessions.Current(r.Context())
		if err != nil {
			s.renderPageError(w, r, pageHome, "Home", err)
			return
		}
		s.render(w, r, http.StatusOK, pageHome, PageData{Title: "Home", Data: homeView{User: current.User}})
	})
}

// MFASetupHandler starts enrolment and shows the secret on the home page.
func (s *Server) MFASetupHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		setup, err := c.API.MFASetup(r.Context())
		if err != nil {
			redirectAPIError(w, r, err, RouteHome, nil)
			return
		}
		current, err := c.Sessions.Current(r.Context())
		if err != nil {
			redirectAPIError(w, r, err, RouteHome, nil)
			return
		}
		s.render(w, r, http.StatusOK, pageHome, PageData{
			Title:   "Home",
			Message: setup.Message,
			Data:    homeView{User: current.User, Setup: setup},
		})
	})
}

func (s *Server) MFAVerifyHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		resp, err := c.API.VerifyMFA(r.Context(), api.VerifyMFARequest{
			Code:      formValue(r, "code"),
			SecretKey: formValue(r, "secretKey"),
		})
		if err != nil {
			redirectAPIError(w, r, err, RouteHome, nil)
			return
		}
		redirectWithMessage(w, r, RouteHome, resp.Message)
	})
}

func (s *Server) MFARevokeHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		resp, err := c.API.RevokeMFA(r.Context())
		if err != nil {
			redirectAPIError(w, r, err, RouteHome, nil)
			return
		}
		redirectWithMessage(w, r, RouteHome, resp.Message)
	})
}
