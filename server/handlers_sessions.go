package server

import (
	"net/http"

	"github.com/jrsteele09/authfront/authclient"
	"github.com/jrsteele09/authfront/sessions"
)

type sessionsView struct {
	Current *sessions.Session
	Others  []sessions.Session
}

func newSessionsView(list *sessions.List) sessionsView {
	view := sessionsView{Others: list.Others()}
	if current, ok := list.Current(); ok {
		view.Current = &current
	}
	return view
}

func (s *Server) SessionsPageHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		list, err := c.Sessions.List(r.Context())
		if err != nil {
			s.renderPageError(w, r, pageSessions, "Sessions", err)
			return
		}
		s.render(w, r, http.StatusOK, pageSessions, PageData{Title: "Sessions", Data: newSessionsView(list)})
	})
}

// SessionDeleteHandler signs another device out.
func (s *Server) SessionDeleteHandler() http.HandlerFunc {
	return s.withClient(func(w http.ResponseWriter, r *http.Request, c *authclient.Client) {
		if err := c.Sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
			redirectAPIError(w, r, err, RouteSessions, nil)
			return
		}
		redirectWithMessage(w, r, RouteSessions, "The session has been signed out")
	})
}
