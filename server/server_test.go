package server_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/jrsteele09/authfront/internal/config"
	"github.com/jrsteele09/authfront/internal/fakeapi"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/jrsteele09/authfront/server"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const (
	annEmail    = "ann@example.com"
	annPassword = "secret1"
)

type testEnv struct {
	fake    *fakeapi.API
	metrics *metrics.Metrics
	bff     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake, err := fakeapi.New()
	require.NoError(t, err)
	apiSrv := httptest.NewServer(fake.Handler())
	t.Cleanup(apiSrv.Close)

	_, err = fake.SeedUser("Ann", annEmail, annPassword, false)
	require.NoError(t, err)

	v := viper.New()
	v.Set("API_BASE_URL", apiSrv.URL)
	m := metrics.New()
	s, err := server.New(config.FromViper(v), server.WithMetrics(m))
	require.NoError(t, err)

	bff := httptest.NewServer(s)
	t.Cleanup(bff.Close)
	return &testEnv{fake: fake, metrics: m, bff: bff}
}

// browser keeps cookies but does not follow redirects.
type browser struct {
	t      *testing.T
	base   *url.URL
	client *http.Client
}

func (e *testEnv) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse(e.bff.URL)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base.String() + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base.String()+path, form)
	require.NoError(b.t, err)
	readBody(b.t, resp)
	return resp
}

func (b *browser) cookie(name string) string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) login(email, password string) *http.Response {
	b.t.Helper()
	return b.post("/", url.Values{"email": {email}, "password": {password}})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func requireRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, location, resp.Header.Get("Location"))
}

func TestGuardRedirects(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp, _ := b.get("/home")
	requireRedirect(t, resp, "/")

	resp, _ = b.get("/sessions")
	requireRedirect(t, resp, "/")

	resp, body := b.get("/signup")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Create an account")

	b.client.Jar.SetCookies(b.base, []*http.Cookie{{Name: "accessToken", Value: "anything"}})
	resp, _ = b.get("/")
	requireRedirect(t, resp, "/home")

	resp, _ = b.get("/forgot-password")
	requireRedirect(t, resp, "/home")
}

func TestGuardHTMXRedirect(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.bff.URL+"/home", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("HX-Redirect"))
}

func TestLoginAndHome(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	requireRedirect(t, b.login(annEmail, annPassword), "/home")
	require.NotEmpty(t, b.cookie("accessToken"))
	require.NotEmpty(t, b.cookie("refreshToken"))

	resp, body := b.get("/home")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Welcome, Ann")
	require.Contains(t, body, annEmail)
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestLoginFailureShowsBanner(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.login(annEmail, "wrong-password")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "/?error="), location)
	require.Empty(t, b.cookie("accessToken"))

	resp, body := b.get(location)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Invalid email or password provided")
}

func TestLoginValidationNeverReachesAPI(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.login("not-an-email", annPassword)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/", loc.Path)
	require.Equal(t, "Invalid email address", loc.Query().Get("error"))
	require.Zero(t, env.fake.Calls("POST /auth/login"))
}

func TestExpiredTokenRefreshedTransparently(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)
	requireRedirect(t, b.login(annEmail, annPassword), "/home")
	before := b.cookie("accessToken")

	env.fake.ExpireAccessTokens()

	resp, body := b.get("/home")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Welcome, Ann")
	require.Equal(t, 1, env.fake.Calls("GET /auth/refresh"))
	require.Equal(t, 2, env.fake.Calls("GET /session/{$}"))

	after := b.cookie("accessToken")
	require.NotEmpty(t, after)
	require.NotEqual(t, before, after)

	expected := `
# HELP authfront_refresh_total Access token refresh attempts by outcome.
# TYPE authfront_refresh_total counter
authfront_refresh_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(env.metrics.Registry(), strings.NewReader(expected), "authfront_refresh_total"))
}

func TestRefreshFailureRedirectsToEntry(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)
	requireRedirect(t, b.login(annEmail, annPassword), "/home")

	env.fake.ExpireAccessTokens()
	env.fake.FailRefresh(true)

	resp, _ := b.get("/home")
	requireRedirect(t, resp, "/")
	require.Empty(t, b.cookie("accessToken"))

	// No token left, so the login page is reachable again.
	resp, body := b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign in")
}

var otherSessionID = regexp.MustCompile(`<div class="session" data-session="([^"]+)"`)

func TestSignOutOtherDevice(t *testing.T) {
	env := newTestEnv(t)
	laptop := env.newBrowser(t)
	phone := env.newBrowser(t)
	requireRedirect(t, laptop.login(annEmail, annPassword), "/home")
	requireRedirect(t, phone.login(annEmail, annPassword), "/home")

	resp, body := laptop.get("/sessions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "This device")
	match := otherSessionID.FindStringSubmatch(body)
	require.Len(t, match, 2, body)

	resp = laptop.post("/sessions/"+match[1]+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/sessions", loc.Path)
	require.NotEmpty(t, loc.Query().Get("message"))

	_, body = laptop.get("/sessions")
	require.Contains(t, body, "No other devices are signed in.")

	// The phone's session is gone, so its refresh fails too.
	resp, _ = phone.get("/home")
	requireRedirect(t, resp, "/")
	require.Empty(t, phone.cookie("accessToken"))

	resp, _ = laptop.get("/home")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)
	requireRedirect(t, b.login(annEmail, annPassword), "/home")

	resp := b.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/?message="))
	require.Empty(t, b.cookie("accessToken"))
	require.Empty(t, b.cookie("refreshToken"))
	require.Equal(t, 1, env.fake.Calls("POST /auth/logout"))

	resp, _ = b.get("/home")
	requireRedirect(t, resp, "/")
}

func TestSignupAndConfirm(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.post("/signup", url.Values{
		"name":            {"Bob"},
		"email":           {"bob@example.com"},
		"password":        {"hunter22"},
		"confirmPassword": {"hunter22"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/confirm-account?message="))

	code := env.fake.VerificationCode("bob@example.com")
	require.NotEmpty(t, code)
	resp = b.post("/confirm-account", url.Values{"code": {code}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/?message="))

	requireRedirect(t, b.login("bob@example.com", "hunter22"), "/home")
}

func TestSignupPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.post("/signup", url.Values{
		"name":            {"Bob"},
		"email":           {"bob@example.com"},
		"password":        {"hunter22"},
		"confirmPassword": {"hunter23"},
	})
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/signup", loc.Path)
	require.Equal(t, "Passwords don't match", loc.Query().Get("error"))
	require.Zero(t, env.fake.Calls("POST /auth/register"))
}

func TestMFALogin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.fake.SeedUser("Cat", "cat@example.com", "secret1", true)
	require.NoError(t, err)
	b := env.newBrowser(t)

	resp := b.login("cat@example.com", "secret1")
	requireRedirect(t, resp, "/verify-mfa?email=cat%40example.com")
	require.Empty(t, b.cookie("accessToken"))

	resp, body := b.get("/verify-mfa?email=cat%40example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "cat@example.com")

	resp = b.post("/verify-mfa", url.Values{"email": {"cat@example.com"}, "code": {env.fake.MFACode()}})
	requireRedirect(t, resp, "/home")
	require.NotEmpty(t, b.cookie("accessToken"))
}

func TestMFASetupShowsSecret(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)
	requireRedirect(t, b.login(annEmail, annPassword), "/home")

	resp := b.post("/mfa/setup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, env.fake.Calls("GET /mfa/setup"))
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.post("/forgot-password", url.Values{"email": {annEmail}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/forgot-password?message="))

	code := env.fake.ResetCode(annEmail)
	require.NotEmpty(t, code)

	resp, body := b.get("/reset-password?code=" + url.QueryEscape(code))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, code)

	resp = b.post("/reset-password", url.Values{"code": {code}, "password": {"newsecret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/?message="))

	requireRedirect(t, b.login(annEmail, "newsecret"), "/home")
}

func TestResetPasswordWithoutCode(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp, _ := b.get("/reset-password")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/forgot-password?error="))
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp, body := b.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)

	b.get("/home")
	resp, body = b.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `authfront_guard_decisions_total{action="redirect",class="protected"} 1`)

	resp, body = b.get("/static/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))
	require.Contains(t, body, ".banner")

	resp, _ = b.get("/static/missing.css")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewRejectsOverlappingRoutes(t *testing.T) {
	v := viper.New()
	v.Set("PROTECTED_ROUTES", "/home,/signup")
	_, err := server.New(config.FromViper(v))
	require.Error(t, err)

	_, err = server.New(nil)
	require.Error(t, err)
}
