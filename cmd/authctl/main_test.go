package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/internal/config"
	"github.com/jrsteele09/authfront/internal/fakeapi"
	"github.com/jrsteele09/authfront/refresh"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, mfa bool) (*fakeapi.API, options) {
	t.Helper()
	fake, err := fakeapi.New()
	require.NoError(t, err)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	_, err = fake.SeedUser("Ann", "ann@example.com", "secret1", mfa)
	require.NoError(t, err)
	return fake, options{baseURL: srv.URL, email: "ann@example.com", password: "secret1"}
}

func newTestCLI(t *testing.T, opts options, store credentials.Store) (*cli, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	c, err := newCLI(opts, config.FromViper(viper.New()), store, out, nil)
	require.NoError(t, err)
	return c, out
}

func TestLoginWhoamiSessions(t *testing.T) {
	_, opts := setup(t, false)
	c, out := newTestCLI(t, opts, credentials.NewMemoryStore())

	require.NoError(t, c.exec(context.Background(), []string{"login", "whoami", "sessions"}))
	require.Contains(t, out.String(), "User login successfully")
	require.Contains(t, out.String(), "Ann <ann@example.com> (2FA off)")
	require.Regexp(t, regexp.MustCompile(`(?m)^\* \S+`), out.String())
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	fake, opts := setup(t, false)
	c, out := newTestCLI(t, opts, credentials.NewMemoryStore())
	require.NoError(t, c.exec(context.Background(), []string{"login"}))

	fake.ExpireAccessTokens()
	require.NoError(t, c.exec(context.Background(), []string{"whoami"}))
	require.Contains(t, out.String(), "Ann <ann@example.com>")
	require.Equal(t, 1, fake.Calls("GET /auth/refresh"))
}

func TestRefreshFailureEndsSession(t *testing.T) {
	fake, opts := setup(t, false)
	store := credentials.NewMemoryStore()
	c, out := newTestCLI(t, opts, store)
	require.NoError(t, c.exec(context.Background(), []string{"login"}))

	fake.ExpireAccessTokens()
	fake.FailRefresh(true)
	err := c.exec(context.Background(), []string{"whoami"})

	var rf *refresh.RefreshFailedError
	require.True(t, errors.As(err, &rf))
	require.Equal(t, "session expired", describe(err))
	require.Contains(t, out.String(), "Your session has ended")
	_, ok := store.Token()
	require.False(t, ok)
}

func TestMFALogin(t *testing.T) {
	fake, opts := setup(t, true)
	opts.code = fake.MFACode()
	c, out := newTestCLI(t, opts, credentials.NewMemoryStore())

	require.NoError(t, c.exec(context.Background(), []string{"login"}))
	require.Contains(t, out.String(), "Two-factor authentication required")

	require.NoError(t, c.exec(context.Background(), []string{"verify-mfa", "whoami"}))
	require.Contains(t, out.String(), "(2FA on)")
}

func TestRevokeAndLogout(t *testing.T) {
	fake, opts := setup(t, false)
	other, _ := newTestCLI(t, opts, credentials.NewMemoryStore())
	require.NoError(t, other.exec(context.Background(), []string{"login"}))

	c, out := newTestCLI(t, opts, credentials.NewMemoryStore())
	require.NoError(t, c.exec(context.Background(), []string{"login"}))
	list, err := c.client.Sessions.List(context.Background())
	require.NoError(t, err)
	others := list.Others()
	require.Len(t, others, 1)

	require.NoError(t, c.exec(context.Background(), []string{"revoke", others[0].ID, "logout"}))
	require.Contains(t, out.String(), "Signed out")
	require.Equal(t, 1, fake.Calls("DELETE /session/{id}"))

	_, ok := c.client.Store.Token()
	require.False(t, ok)
}

func TestUsageErrors(t *testing.T) {
	_, opts := setup(t, false)
	c, _ := newTestCLI(t, opts, credentials.NewMemoryStore())

	for _, args := range [][]string{nil, {"frobnicate"}, {"revoke"}} {
		require.ErrorIs(t, c.exec(context.Background(), args), errUsage, args)
	}
}

func TestValidationIsDescribed(t *testing.T) {
	fake, opts := setup(t, false)
	opts.email = "not-an-email"
	c, _ := newTestCLI(t, opts, credentials.NewMemoryStore())

	err := c.exec(context.Background(), []string{"login"})
	require.Error(t, err)
	require.Equal(t, "Invalid email address", describe(err))
	require.Zero(t, fake.Calls("POST /auth/login"))
}

func TestNewStoreUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	v := viper.New()
	v.Set("REDIS_ADDR", mr.Addr())
	store, err := newStore(config.FromViper(v))
	require.NoError(t, err)
	require.IsType(t, &credentials.RedisStore{}, store)

	_, opts := setup(t, false)
	c, _ := newTestCLI(t, opts, store)
	require.NoError(t, c.exec(context.Background(), []string{"login"}))
	require.True(t, mr.Exists("authfront:access-token"))

	memory, err := newStore(config.FromViper(viper.New()))
	require.NoError(t, err)
	require.IsType(t, &credentials.MemoryStore{}, memory)
}
