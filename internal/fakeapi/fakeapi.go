// Package fakeapi is an in-memory implementation of the authentication API
// the front end talks to. It backs the tests of every client package and
// can be told to expire access tokens or to fail refreshes.
package fakeapi

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/authfront/internal/fakeapi/loginsession"
	"github.com/jrsteele09/authfront/sessions"
	"github.com/jrsteele09/authfront/users"
	fakeuserrepo "github.com/jrsteele09/authfront/users/repofake"
	"github.com/rs/zerolog/log"
)

// Error codes returned in the error envelope.
const (
	CodeAuthTokenNotFound   = "AUTH_TOKEN_NOT_FOUND"
	CodeInvalidRefreshToken = "AUTH_INVALID_REFRESH_TOKEN"
	CodeInvalidCredentials  = "AUTH_USER_NOT_FOUND"
	CodeEmailExists         = "AUTH_EMAIL_ALREADY_EXISTS"
	CodeEmailNotVerified    = "AUTH_EMAIL_NOT_VERIFIED"
	CodeVerification        = "VERIFICATION_ERROR"
	CodeInvalidMFACode      = "AUTH_INVALID_MFA_CODE"
	CodeNotFound            = "RESOURCE_NOT_FOUND"
	CodeBadRequest          = "VALIDATION_ERROR"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	DefaultMFACode = "123456"
)

type API struct {
	users     *fakeuserrepo.FakeUserRepo
	sessions  loginsession.Repo
	tokens    *tokenCreator
	refreshes *refreshManager
	now       func() time.Time

	accessTTL  time.Duration
	sessionTTL time.Duration
	mfaCode    string

	mu                sync.Mutex
	calls             map[string]int
	failRefresh       bool
	verificationCodes map[string]string // code -> email
	resetCodes        map[string]string // code -> email

	mux *http.ServeMux
}

// Option defines a function type to modify the API instance.
type Option func(*API)

func WithNowTime(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

func WithAccessTokenTTL(d time.Duration) Option {
	return func(a *API) {
		a.accessTTL = d
	}
}

// WithMFACode fixes the one code accepted as a valid second factor.
func WithMFACode(code string) Option {
	return func(a *API) {
		a.mfaCode = code
	}
}

func New(options ...Option) (*API, error) {
	a := &API{
		users:             fakeuserrepo.NewFakeUserRepo(),
		sessions:          loginsession.NewInMemoryRepo(),
		now:               time.Now,
		accessTTL:         time.Hour,
		sessionTTL:        30 * 24 * time.Hour,
		mfaCode:           DefaultMFACode,
		calls:             make(map[string]int),
		verificationCodes: make(map[string]string),
		resetCodes:        make(map[string]string),
		mux:               http.NewServeMux(),
	}
	for _, opt := range options {
		opt(a)
	}

	var err error
	if a.tokens, err = newTokenCreator(a.accessTTL, a.now); err != nil {
		return nil, err
	}
	a.refreshes = newRefreshManager(a.sessionTTL, a.now)
	a.initRoutes()
	return a, nil
}

func (a *API) initRoutes() {
	a.handle("POST /auth/register", a.register)
	a.handle("POST /auth/verify/email", a.verifyEmail)
	a.handle("POST /auth/login", a.login)
	a.handle("POST /auth/forgot/password", a.forgotPassword)
	a.handle("POST /auth/password/reset", a.resetPassword)
	a.handle("GET /auth/refresh", a.refresh)
	a.handle("POST /auth/logout", a.authenticated(a.logout))
	a.handle("POST /mfa/verify-login", a.verifyMFALogin)
	a.handle("GET /mfa/setup", a.authenticated(a.mfaSetup))
	a.handle("POST /mfa/verify", a.authenticated(a.verifyMFA))
	a.handle("PUT /mfa/revoke", a.authenticated(a.revokeMFA))
	a.handle("GET /session/{$}", a.authenticated(a.currentSession))
	a.handle("GET /session/all", a.authenticated(a.allSessions))
	a.handle("DELETE /session/{id}", a.authenticated(a.deleteSession))
}

func (a *API) handle(pattern string, h http.HandlerFunc) {
	a.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.calls[pattern]++
		a.mu.Unlock()
		h(w, r)
	})
}

// Handler serves the API rooted at "/". Mount it under a prefix with
// http.StripPrefix to mimic a versioned base URL.
func (a *API) Handler() http.Handler {
	return a.mux
}

// Calls returns how often the route pattern (e.g. "GET /session/all") was hit.
func (a *API) Calls(pattern string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[pattern]
}

// ExpireAccessTokens makes every access token issued so far fail with
// AUTH_TOKEN_NOT_FOUND. Refresh tokens stay valid.
func (a *API) ExpireAccessTokens() {
	a.tokens.RevokeIssued()
}

// FailRefresh makes the refresh endpoint reject every request.
func (a *API) FailRefresh(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failRefresh = fail
}

func (a *API) MFACode() string {
	return a.mfaCode
}

// SeedUser adds a verified user.
func (a *API) SeedUser(name, email, password string, mfa bool) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &users.User{
		Name:            name,
		Email:           email,
		PasswordHash:    hash,
		IsEmailVerified: true,
		CreatedAt:       a.now(),
		UpdatedAt:       a.now(),
	}
	if mfa {
		u.Preferences = users.UserPreferences{EnableTwoFactor: true, TwoFactorSecret: newSecret()}
	}
	if err := a.users.Upsert(u); err != nil {
		return nil, err
	}
	return u, nil
}

// VerificationCode returns the pending email verification code for email.
func (a *API) VerificationCode(email string) string {
	return a.codeFor(a.verificationCodes, email)
}

// ResetCode returns the pending password reset code for email.
func (a *API) ResetCode(email string) string {
	return a.codeFor(a.resetCodes, email)
}

func (a *API) codeFor(codes map[string]string, email string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for code, e := range codes {
		if e == email {
			return code
		}
	}
	return ""
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Password != in.ConfirmPassword {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid registration details")
		return
	}
	if _, err := a.users.GetByEmail(in.Email); err == nil {
		writeError(w, http.StatusBadRequest, CodeEmailExists, "User already exists with this email")
		return
	}

	hash, err := users.HashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to register user")
		return
	}
	u := &users.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    a.now(),
		UpdatedAt:    a.now(),
	}
	if err := a.users.Upsert(u); err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to register user")
		return
	}

	a.mu.Lock()
	a.verificationCodes[uuid.New().String()] = u.Email
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user": u})
}

func (a *API) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &in) {
		return
	}
	email, ok := a.takeCode(a.verificationCodes, in.Code)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeVerification, "Invalid or expired verification code")
		return
	}
	if err := a.users.SetVerified(email, true); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

func (a *API) takeCode(codes map[string]string, code string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email, ok := codes[code]
	if ok {
		delete(codes, code)
	}
	return email, ok
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	u, err := a.users.GetByEmail(in.Email)
	if err != nil || !u.CheckPassword(in.Password) {
		writeError(w, http.StatusBadRequest, CodeInvalidCredentials, "Invalid email or password provided")
		return
	}
	if !u.IsEmailVerified {
		writeError(w, http.StatusForbidden, CodeEmailNotVerified, "Please verify your email address")
		return
	}
	if u.MFAEnabled() {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Verify MFA authentication", "mfaRequired": true, "user": nil})
		return
	}
	if !a.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User login successfully", "mfaRequired": false, "user": u})
}

func (a *API) verifyMFALogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code  string `json:"code"`
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	u, err := a.users.GetByEmail(in.Email)
	if err != nil || !u.MFAEnabled() {
		writeError(w, http.StatusBadRequest, CodeInvalidCredentials, "Invalid email")
		return
	}
	if in.Code != a.mfaCode {
		writeError(w, http.StatusBadRequest, CodeInvalidMFACode, "Invalid MFA code")
		return
	}
	if !a.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Verified & login successfully", "user": u})
}

// startSession creates a session and sets both token cookies.
func (a *API) startSession(w http.ResponseWriter, r *http.Request, u *users.User) bool {
	now := a.now()
	s := loginsession.Session{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		UserAgent: r.UserAgent(),
		CreatedAt: now,
		ExpiresAt: now.Add(a.sessionTTL),
	}
	if err := a.sessions.Upsert(s); err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to create session")
		return false
	}

	access, err := a.tokens.CreateAccessToken(u.ID, s.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to issue token")
		return false
	}
	refresh, err := a.refreshes.Create(u.ID, s.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to issue token")
		return false
	}
	a.setTokenCookies(w, access, refresh)
	return true
}

func (a *API) setTokenCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.accessTTL.Seconds()),
	})
	if refresh != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     RefreshTokenCookie,
			Value:    refresh,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(a.sessionTTL.Seconds()),
		})
	}
}

func clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	fail := a.failRefresh
	a.mu.Unlock()

	cookie, err := r.Cookie(RefreshTokenCookie)
	if fail || err != nil {
		clearTokenCookies(w)
		writeError(w, http.StatusUnauthorized, CodeInvalidRefreshToken, "Invalid refresh token")
		return
	}
	rt, ok := a.refreshes.Get(cookie.Value)
	if !ok {
		clearTokenCookies(w)
		writeError(w, http.StatusUnauthorized, CodeInvalidRefreshToken, "Invalid refresh token")
		return
	}
	if _, err := a.sessions.Get(rt.SessionID); err != nil {
		clearTokenCookies(w)
		writeError(w, http.StatusUnauthorized, CodeInvalidRefreshToken, "Session expired")
		return
	}

	access, err := a.tokens.CreateAccessToken(rt.UserID, rt.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to issue token")
		return
	}
	a.setTokenCookies(w, access, "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Refresh access token successfully", "accessToken": access})
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	if _, err := a.users.GetByEmail(in.Email); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}
	a.mu.Lock()
	a.resetCodes[uuid.New().String()] = in.Email
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password         string `json:"password"`
		VerificationCode string `json:"verificationCode"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Password == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Password is required")
		return
	}
	email, ok := a.takeCode(a.resetCodes, in.VerificationCode)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeVerification, "Invalid or expired verification code")
		return
	}
	hash, err := users.HashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to reset password")
		return
	}
	u, err := a.users.GetByEmail(email)
	if err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}
	_ = a.users.SetPassword(email, hash)
	a.endAllSessions(u.ID)

	clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reset password successfully"})
}

func (a *API) endAllSessions(userID string) {
	list, _ := a.sessions.ListByUser(userID)
	for _, s := range list {
		a.refreshes.DeleteSession(s.ID)
	}
	_ = a.sessions.DeleteByUser(userID)
}

type principal struct {
	user      *users.User
	sessionID string
}

// authenticated rejects requests without a live access token with
// 401 AUTH_TOKEN_NOT_FOUND.
func (a *API) authenticated(next func(http.ResponseWriter, *http.Request, principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, CodeAuthTokenNotFound, "Unauthorized access token")
			return
		}
		claims, err := a.tokens.Parse(raw)
		if err != nil {
			log.Debug().Err(err).Msg("fakeapi: rejected access token")
			writeError(w, http.StatusUnauthorized, CodeAuthTokenNotFound, "Unauthorized access token")
			return
		}
		if _, err := a.sessions.Get(claims.SessionID); err != nil {
			writeError(w, http.StatusUnauthorized, CodeAuthTokenNotFound, "Session expired")
			return
		}
		u, err := a.users.GetByID(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, CodeAuthTokenNotFound, "User not found")
			return
		}
		next(w, r, principal{user: u, sessionID: claims.SessionID})
	}
}

func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (a *API) logout(w http.ResponseWriter, r *http.Request, p principal) {
	_ = a.sessions.Delete(p.sessionID)
	a.refreshes.DeleteSession(p.sessionID)
	clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User logout successfully"})
}

func (a *API) mfaSetup(w http.ResponseWriter, r *http.Request, p principal) {
	if p.user.MFAEnabled() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "MFA already enabled"})
		return
	}
	secret := newSecret()
	otpURL := fmt.Sprintf("otpauth://totp/authfront:%s?secret=%s&issuer=authfront", url.PathEscape(p.user.Email), secret)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Scan the QR code or use the setup key.",
		"secret":     secret,
		"qrImageUrl": "https://api.qrserver.com/v1/create-qr-code/?data=" + url.QueryEscape(otpURL),
	})
}

func (a *API) verifyMFA(w http.ResponseWriter, r *http.Request, p principal) {
	var in struct {
		Code      string `json:"code"`
		SecretKey string `json:"secretKey"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.SecretKey == "" || in.Code != a.mfaCode {
		writeError(w, http.StatusBadRequest, CodeInvalidMFACode, "Invalid MFA code. Please try again.")
		return
	}
	if err := a.users.SetTwoFactor(p.user.Email, true, in.SecretKey); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "MFA setup completed successfully"})
}

func (a *API) revokeMFA(w http.ResponseWriter, r *http.Request, p principal) {
	if !p.user.MFAEnabled() {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "MFA is not enabled")
		return
	}
	if err := a.users.SetTwoFactor(p.user.Email, false, ""); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "MFA revoke successfully"})
}

func (a *API) currentSession(w http.ResponseWriter, r *http.Request, p principal) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Session retrieved successfully", "user": p.user})
}

func (a *API) allSessions(w http.ResponseWriter, r *http.Request, p principal) {
	list, err := a.sessions.ListByUser(p.user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "Failed to list sessions")
		return
	}
	out := sessions.List{Message: "Retrieved all session successfully", Sessions: make([]sessions.Session, 0, len(list))}
	for _, s := range list {
		out.Sessions = append(out.Sessions, sessions.Session{
			ID:        s.ID,
			UserID:    s.UserID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			IsCurrent: s.ID == p.sessionID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request, p principal) {
	id := r.PathValue("id")
	s, err := a.sessions.Get(id)
	if err != nil || s.UserID != p.user.ID {
		writeError(w, http.StatusNotFound, CodeNotFound, "Session not found")
		return
	}
	_ = a.sessions.Delete(id)
	a.refreshes.DeleteSession(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session removed successfully"})
}

func newSecret() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("fakeapi: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"errorCode": code, "message": message})
}
