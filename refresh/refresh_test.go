package refresh_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/internal/metrics"
	"github.com/jrsteele09/authfront/refresh"
	"github.com/jrsteele09/authfront/transport"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// fakeAPI accepts one valid token on /session/all and rotates to the next
// token on /auth/refresh.
type fakeAPI struct {
	mu           sync.Mutex
	valid        string
	next         string
	failRefresh  bool
	cookieOnly   bool
	alwaysExpire bool
	release      chan struct{}
	entered      chan struct{}

	sessionCalls atomic.Int32
	refreshCalls atomic.Int32
	seenTokens   []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session/all", func(w http.ResponseWriter, r *http.Request) {
		f.sessionCalls.Add(1)
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		f.seenTokens = append(f.seenTokens, got)
		ok := got == f.valid && !f.alwaysExpire
		f.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"errorCode": refresh.AuthTokenNotFound, "message": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": []map[string]string{{"_id": "s1"}}})
	})
	mux.HandleFunc("GET /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if f.entered != nil {
			f.entered <- struct{}{}
		}
		if f.release != nil {
			<-f.release
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failRefresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"errorCode": "REFRESH_TOKEN_INVALID"})
			return
		}
		f.valid = f.next
		if f.cookieOnly {
			http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: f.next, Path: "/"})
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": f.next})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type harness struct {
	api         *fakeAPI
	store       *credentials.MemoryStore
	navigator   *recordingNavigator
	metrics     *metrics.Metrics
	coordinator *refresh.Coordinator
	sender      transport.Sender
}

func newHarness(t *testing.T, api *fakeAPI) *harness {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	h := &harness{
		api:       api,
		store:     credentials.NewMemoryStore(),
		navigator: &recordingNavigator{},
		metrics:   metrics.New(),
	}

	plain, err := transport.New(srv.URL, h.store, transport.WithMetrics(h.metrics))
	require.NoError(t, err)
	refresher, err := transport.New(srv.URL, h.store)
	require.NoError(t, err)

	h.coordinator, err = refresh.NewCoordinator(refresher, h.store,
		refresh.WithNavigator(h.navigator),
		refresh.WithMetrics(h.metrics),
	)
	require.NoError(t, err)
	h.sender = refresh.WithAuthRefresh(plain, h.coordinator)
	return h
}

func listSessions(t *testing.T, s transport.Sender) (*transport.Response, error) {
	t.Helper()
	req, err := transport.NewRequest(http.MethodGet, "/session/all", nil)
	require.NoError(t, err)
	return s.Send(context.Background(), req)
}

func TestExpiredTokenRefreshedAndRetriedOnce(t *testing.T) {
	h := newHarness(t, &fakeAPI{valid: "tok0", next: "tok2"})
	require.NoError(t, h.store.SetToken("tok1"))

	resp, err := listSessions(t, h.sender)
	require.NoError(t, err)

	var body struct {
		Sessions []struct {
			ID string `json:"_id"`
		} `json:"sessions"`
	}
	require.NoError(t, resp.Decode(&body))
	require.Len(t, body.Sessions, 1)
	require.Equal(t, "s1", body.Sessions[0].ID)

	require.EqualValues(t, 2, h.api.sessionCalls.Load())
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
	require.Equal(t, []string{"tok1", "tok2"}, h.api.seenTokens)

	tok, ok := h.store.Token()
	require.True(t, ok)
	require.Equal(t, "tok2", tok.AccessToken)
	require.Empty(t, h.navigator.Targets())

	expected := `
# HELP authfront_refresh_total Access token refresh attempts by outcome.
# TYPE authfront_refresh_total counter
authfront_refresh_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "authfront_refresh_total"))
}

func TestValidTokenNeverRefreshes(t *testing.T) {
	h := newHarness(t, &fakeAPI{valid: "tok1", next: "tok2"})
	require.NoError(t, h.store.SetToken("tok1"))

	_, err := listSessions(t, h.sender)
	require.NoError(t, err)
	require.EqualValues(t, 1, h.api.sessionCalls.Load())
	require.EqualValues(t, 0, h.api.refreshCalls.Load())
}

func TestOtherFailuresPropagateUntouched(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"401 with another code", http.StatusUnauthorized, `{"errorCode":"INVALID_CREDENTIALS","message":"Invalid credentials"}`},
		{"401 without a body", http.StatusUnauthorized, ``},
		{"403 with the expired code", http.StatusForbidden, `{"errorCode":"AUTH_TOKEN_NOT_FOUND"}`},
		{"400 validation", http.StatusBadRequest, `{"message":"email is required"}`},
		{"500", http.StatusInternalServerError, `internal error`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var refreshes atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == refresh.DefaultPath {
					refreshes.Add(1)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			store := credentials.NewMemoryStore()
			require.NoError(t, store.SetToken("tok1"))
			plain, err := transport.New(srv.URL, store)
			require.NoError(t, err)
			refresher, err := transport.New(srv.URL, store)
			require.NoError(t, err)
			c, err := refresh.NewCoordinator(refresher, store)
			require.NoError(t, err)

			_, err = listSessions(t, refresh.WithAuthRefresh(plain, c))
			require.Error(t, err)

			var te *transport.TransportError
			require.True(t, errors.As(err, &te))
			require.Equal(t, tc.status, te.Status)
			require.Equal(t, tc.body, string(te.Body))
			require.False(t, refresh.IsAuthExpired(err))
			require.EqualValues(t, 0, refreshes.Load())

			tok, ok := store.Token()
			require.True(t, ok)
			require.Equal(t, "tok1", tok.AccessToken)
		})
	}
}

func TestNetworkFailureDoesNotRefresh(t *testing.T) {
	api := &fakeAPI{valid: "tok1", next: "tok2"}
	h := newHarness(t, api)

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	store := credentials.NewMemoryStore()
	plain, err := transport.New(downURL, store, transport.WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = listSessions(t, refresh.WithAuthRefresh(plain, h.coordinator))
	require.Error(t, err)

	var te *transport.TransportError
	require.True(t, errors.As(err, &te))
	require.False(t, te.HasResponse())
	require.EqualValues(t, 0, api.refreshCalls.Load())
}

func TestRetryFailureIsReturnedWithoutSecondRefresh(t *testing.T) {
	h := newHarness(t, &fakeAPI{valid: "tok0", next: "tok2", alwaysExpire: true})
	require.NoError(t, h.store.SetToken("tok1"))

	_, err := listSessions(t, h.sender)
	require.Error(t, err)

	// The retry failed with the same signature; its error is what the caller sees.
	require.True(t, refresh.IsAuthExpired(err))
	var rf *refresh.RefreshFailedError
	require.False(t, errors.As(err, &rf))

	require.EqualValues(t, 2, h.api.sessionCalls.Load())
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
	require.Equal(t, []string{"tok1", "tok2"}, h.api.seenTokens)
	require.Empty(t, h.navigator.Targets())
}

func TestRefreshFailureClearsStoreAndNavigates(t *testing.T) {
	h := newHarness(t, &fakeAPI{valid: "tok0", next: "tok2", failRefresh: true})
	require.NoError(t, h.store.SetToken("tok1"))

	_, err := listSessions(t, h.sender)
	require.Error(t, err)

	var rf *refresh.RefreshFailedError
	require.True(t, errors.As(err, &rf))
	require.Equal(t, "/", rf.Target)
	require.False(t, refresh.IsAuthExpired(err))

	var te *transport.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, refresh.DefaultPath, te.Path)

	_, ok := h.store.Token()
	require.False(t, ok)
	require.Equal(t, []string{"/"}, h.navigator.Targets())
	require.EqualValues(t, 1, h.api.sessionCalls.Load())
	require.EqualValues(t, 1, h.api.refreshCalls.Load())

	expected := `
# HELP authfront_refresh_total Access token refresh attempts by outcome.
# TYPE authfront_refresh_total counter
authfront_refresh_total{outcome="failure"} 1
`
	require.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "authfront_refresh_total"))
}

func TestMissingTokenIsRecoverable(t *testing.T) {
	h := newHarness(t, &fakeAPI{valid: "tok0", next: "tok2"})

	_, err := listSessions(t, h.sender)
	require.NoError(t, err)
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
	require.Equal(t, []string{"", "tok2"}, h.api.seenTokens)
}

func TestRefreshTokenFromCookie(t *testing.T) {
	h := newHarness(t, &fakeAPI{valid: "tok0", next: "tok2", cookieOnly: true})
	require.NoError(t, h.store.SetToken("tok1"))

	_, err := listSessions(t, h.sender)
	require.NoError(t, err)

	tok, ok := h.store.Token()
	require.True(t, ok)
	require.Equal(t, "tok2", tok.AccessToken)
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	store := credentials.NewMemoryStore()
	refresher, err := transport.New(srv.URL, store)
	require.NoError(t, err)
	c, err := refresh.NewCoordinator(refresher, store)
	require.NoError(t, err)

	_, err = c.Refresh(context.Background())
	require.ErrorIs(t, err, refresh.ErrNoTokenInResponse)
}

func TestConcurrentRefreshesShareOneCall(t *testing.T) {
	api := &fakeAPI{
		valid:   "tok0",
		next:    "tok2",
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	h := newHarness(t, api)

	const callers = 5
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = h.coordinator.Refresh(context.Background())
		}(i)
	}

	<-api.entered
	// Give the remaining callers time to join the in-flight refresh.
	time.Sleep(100 * time.Millisecond)
	close(api.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "tok2", tokens[i])
	}
	require.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestRefreshSurvivesCallerCancellation(t *testing.T) {
	api := &fakeAPI{
		valid:   "tok0",
		next:    "tok2",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	h := newHarness(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.coordinator.Refresh(ctx)
		done <- err
	}()

	<-api.entered
	cancel()
	close(api.release)
	require.NoError(t, <-done)

	tok, ok := h.store.Token()
	require.True(t, ok)
	require.Equal(t, "tok2", tok.AccessToken)
}

func TestNewCoordinatorValidation(t *testing.T) {
	store := credentials.NewMemoryStore()
	_, err := refresh.NewCoordinator(nil, store)
	require.Error(t, err)

	tr, err := transport.New("http://localhost:8000", store)
	require.NoError(t, err)
	_, err = refresh.NewCoordinator(tr, nil)
	require.Error(t, err)

	c, err := refresh.NewCoordinator(tr, store, refresh.WithEntryPath("/login"))
	require.NoError(t, err)
	require.Equal(t, "/login", c.EntryPath())
}
