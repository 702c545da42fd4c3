package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

// Page template names
const (
	pageLogin          = "login.html"
	pageSignup         = "signup.html"
	pageConfirmAccount = "confirm_account.html"
	pageForgotPassword = "forgot_password.html"
	pageResetPassword  = "reset_password.html"
	pageVerifyMFA      = "verify_mfa.html"
	pageHome           = "home.html"
	pageSessions       = "sessions.html"
)

var pageNames = []string{
	pageLogin,
	pageSignup,
	pageConfirmAccount,
	pageForgotPassword,
	pageResetPassword,
	pageVerifyMFA,
	pageHome,
	pageSessions,
}

// pageTemplates holds every page parsed together with the shared layout.
type pageTemplates struct {
	pages map[string]*template.Template
}

// PageData is what every page template receives.
type PageData struct {
	AppName string
	Title   string
	Error   string
	Message string
	Data    any
}

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

func parsePages() (*pageTemplates, error) {
	fsys := TemplateFilesFS()
	pt := &pageTemplates{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(fsys, layoutTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pt.pages[name] = tmpl
	}
	return pt, nil
}

// render writes the page with the given status. The page is executed into a
// buffer first so a template error never leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	tmpl, ok := s.pages.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("unknown page template")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	if data.AppName == "" {
		data.AppName = s.config.GetAppName()
	}
	if data.Error == "" {
		data.Error = r.URL.Query().Get("error")
	}
	if data.Message == "" {
		data.Message = r.URL.Query().Get("message")
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		log.Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
