package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/carpolicy/pkg/domain"
	"github.com/naveenspark/carpolicy/pkg/session"
)

var alice = domain.SessionUser{UserID: 1, Username: "alice", Email: "alice@example.com"}

// backend is a fake policy API that accepts exactly one access token at a time
// and rotates it on refresh.
type backend struct {
	mu      sync.Mutex
	access  string
	refresh string
	gen     int

	// refreshStatus overrides the refresh response when non-zero.
	refreshStatus int
	// refreshGate, when set, delays the refresh response until it is closed.
	refreshGate chan struct{}

	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
	rejected       atomic.Int32
	authHeaders    []string
	requestIDs     []string
}

func newBackend() *backend {
	return &backend{access: "access-0", refresh: "refresh-0"}
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh_token", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if b.refreshGate != nil {
			<-b.refreshGate
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.refreshStatus != 0 {
			w.WriteHeader(b.refreshStatus)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid refresh token"}) //nolint:errcheck
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+b.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.gen++
		b.access = "access-" + string(rune('0'+b.gen))
		b.refresh = "refresh-" + string(rune('0'+b.gen))
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"access_token":  b.access,
			"refresh_token": b.refresh,
			"token_type":    "bearer",
			"user":          map[string]any{"user_id": 1, "username": "alice", "email": "alice@example.com", "is_admin": false},
		})
	})
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		b.protectedCalls.Add(1)
		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
		b.requestIDs = append(b.requestIDs, r.Header.Get("X-Request-ID"))
		ok := r.Header.Get("Authorization") == "Bearer "+b.access
		b.mu.Unlock()
		if !ok {
			b.rejected.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Token expired"}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"}) //nolint:errcheck
	})
	return mux
}

// expire rotates the accepted access token so the stored one is rejected.
func (b *backend) expire() {
	b.mu.Lock()
	b.access = "rotated-away"
	b.mu.Unlock()
}

func signedInStore(t *testing.T) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(&domain.Session{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		User:         alice,
	}))
	return store
}

func TestDoAttachesStoredToken(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := New(srv.URL, signedInStore(t))
	out, err := c.Do(context.Background(), RequestSpec{
		URL:    "/protected",
		Header: map[string]string{"Authorization": "Bearer caller-supplied"},
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.JSONEq(t, `{"message":"ok"}`, string(out.Data))
	assert.Equal(t, []string{"Bearer access-0"}, b.authHeaders)
	assert.Zero(t, b.refreshCalls.Load())
}

func TestDoWithoutSessionOmitsAuthorization(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Values("Authorization")
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, session.NewMemoryStore())
	out, err := c.Do(context.Background(), RequestSpec{URL: "/anything"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, gotAuth, "no session means no Authorization header at all")
}

func TestDoWithoutSessionOn401ExpiresWithoutRefresh(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	var expired int
	c := New(srv.URL, session.NewMemoryStore(), WithSessionExpiredHandler(func(error) { expired++ }))
	out, err := c.Do(context.Background(), RequestSpec{URL: "/protected"})
	require.NoError(t, err)
	assert.True(t, out.SessionExpired())
	assert.ErrorIs(t, out.Cause, ErrSessionExpired)
	assert.ErrorIs(t, out.Cause, ErrNoSession)
	assert.Zero(t, b.refreshCalls.Load())
	assert.Equal(t, 1, expired)
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	b := newBackend()
	b.expire()
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	store := signedInStore(t)
	c := New(srv.URL, store)
	out, err := c.Do(context.Background(), RequestSpec{URL: "/protected"})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.EqualValues(t, 1, b.refreshCalls.Load())
	assert.EqualValues(t, 2, b.protectedCalls.Load())
	assert.Equal(t, []string{"Bearer access-0", "Bearer access-1"}, b.authHeaders)
	require.Len(t, b.requestIDs, 2)
	assert.NotEmpty(t, b.requestIDs[0])
	assert.Equal(t, b.requestIDs[0], b.requestIDs[1], "retry keeps the request id")

	s, err := store.Get()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "access-1", s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Equal(t, alice, s.User)
}

func TestDoSecond401ForcesLogout(t *testing.T) {
	var protected, refreshes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh_token":
			refreshes++
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"access_token": "fresh", "refresh_token": "fresh-r", "user": alice,
			})
		default:
			protected++
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	store := signedInStore(t)
	var reasons []error
	c := New(srv.URL, store, WithSessionExpiredHandler(func(err error) { reasons = append(reasons, err) }))

	out, err := c.Do(context.Background(), RequestSpec{URL: "/protected"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, http.StatusUnauthorized, out.Status)
	assert.Equal(t, MsgSessionExpired, out.Message)
	assert.Equal(t, 1, refreshes, "a second 401 must not trigger another refresh")
	assert.Equal(t, 2, protected)
	assert.Len(t, reasons, 1)

	s, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, s, "session must be cleared")
}

func TestDoRefreshFailureClearsSession(t *testing.T) {
	b := newBackend()
	b.expire()
	b.refreshStatus = http.StatusUnauthorized
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	store := signedInStore(t)
	c := New(srv.URL, store)
	out, err := c.Do(context.Background(), RequestSpec{URL: "/protected"})
	require.NoError(t, err)

	assert.True(t, out.SessionExpired())
	assert.EqualValues(t, 1, b.protectedCalls.Load(), "no retry after a failed refresh")
	assert.True(t, IsStatus(out.Cause, http.StatusUnauthorized))
	s, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestDoNoRetry(t *testing.T) {
	b := newBackend()
	b.expire()
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := New(srv.URL, signedInStore(t))
	out, err := c.Do(context.Background(), RequestSpec{URL: "/protected", NoRetry: true})
	require.NoError(t, err)
	assert.True(t, out.SessionExpired())
	assert.Zero(t, b.refreshCalls.Load())
}

func TestDoConcurrent401sShareOneRefresh(t *testing.T) {
	const n = 8
	b := newBackend()
	b.expire()
	b.refreshGate = make(chan struct{})
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := New(srv.URL, signedInStore(t))

	// Release the refresh only once every request has been rejected and had
	// time to join the in-flight refresh.
	go func() {
		for b.rejected.Load() < n {
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)
		close(b.refreshGate)
	}()

	var wg sync.WaitGroup
	outcomes := make([]Outcome, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.Do(context.Background(), RequestSpec{URL: "/protected"})
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, b.refreshCalls.Load())
	for i, out := range outcomes {
		assert.True(t, out.Success, "request %d: %s", i, out.Message)
	}
}

func TestDoCancelledWhileRefreshPendingKeepsSession(t *testing.T) {
	b := newBackend()
	b.expire()
	b.refreshGate = make(chan struct{})
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	store := signedInStore(t)
	var expired atomic.Int32
	c := New(srv.URL, store, WithSessionExpiredHandler(func(error) { expired.Add(1) }))

	type result struct {
		out Outcome
		err error
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelled := make(chan result, 1)
	live := make(chan result, 1)
	go func() {
		out, err := c.Do(ctx, RequestSpec{URL: "/protected"})
		cancelled <- result{out, err}
	}()
	go func() {
		out, err := c.Do(context.Background(), RequestSpec{URL: "/protected"})
		live <- result{out, err}
	}()

	require.Eventually(t, func() bool {
		return b.rejected.Load() == 2 && b.refreshCalls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()

	first := <-cancelled
	require.NoError(t, first.err)
	assert.False(t, first.out.Success)
	assert.Equal(t, 0, first.out.Status)
	assert.Equal(t, MsgNetworkError, first.out.Message)
	assert.ErrorIs(t, first.out.Cause, context.Canceled)

	s, err := store.Get()
	require.NoError(t, err)
	require.NotNil(t, s, "cancelling one request must not end the session")

	close(b.refreshGate)
	second := <-live
	require.NoError(t, second.err)
	assert.True(t, second.out.Success, second.out.Message)

	assert.EqualValues(t, 1, b.refreshCalls.Load())
	assert.Zero(t, expired.Load())
	s, err = store.Get()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "access-1", s.AccessToken)
}

func TestDoStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantErr bool
	}{
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, "field required", true},
		{"bad request detail", http.StatusBadRequest, `{"detail":"bad input"}`, "bad input", true},
		{"bad request no body", http.StatusBadRequest, ``, MsgNoPayload, false},
		{"not found", http.StatusNotFound, `{"detail":"User not found"}`, MsgNotFound, false},
		{"conflict", http.StatusConflict, `{"detail":"dup"}`, MsgConflict, false},
		{"server error", http.StatusInternalServerError, `oops`, MsgUnknown, false},
		{"forbidden", http.StatusForbidden, `{"detail":"nope"}`, MsgUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body) //nolint:errcheck
			}))
			defer srv.Close()

			c := New(srv.URL, signedInStore(t))
			out, err := c.Do(context.Background(), RequestSpec{URL: "/x", Method: http.MethodPost, Body: map[string]string{"a": "b"}})
			require.NoError(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.wantMsg, out.Message)
			if tt.wantErr {
				assert.NotNil(t, out.ErrorBody)
			}
			assert.True(t, IsStatus(out.Err(), tt.status))
		})
	}
}

func TestDoSendsJSONBody(t *testing.T) {
	var gotType string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, signedInStore(t))
	out, err := c.Do(context.Background(), RequestSpec{
		URL:    "/create_optional_extra",
		Method: http.MethodPost,
		Body:   domain.OptionalExtra{Name: "Breakdown", Code: "BRK", Price: 25},
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusCreated, out.Status)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "BRK", got["code"])

	t.Run("caller content type wins", func(t *testing.T) {
		_, err := c.Do(context.Background(), RequestSpec{
			URL:    "/x",
			Method: http.MethodPost,
			Header: map[string]string{"Content-Type": "application/merge-patch+json"},
			Body:   map[string]int{"a": 1},
		})
		require.NoError(t, err)
		assert.Equal(t, "application/merge-patch+json", gotType)
	})
}

func TestDoEmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, signedInStore(t))
	out, err := c.Do(context.Background(), RequestSpec{URL: "/x"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Nil(t, out.Data)
}

func TestDoMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"policies": [`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, signedInStore(t))
	_, err := c.Do(context.Background(), RequestSpec{URL: "/x"})
	assert.Error(t, err)
}

func TestDoNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	store := signedInStore(t)
	c := New(url, store)
	out, err := c.Do(context.Background(), RequestSpec{URL: "/x"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Status)
	assert.Equal(t, MsgNetworkError, out.Message)
	assert.Error(t, out.Cause)
	assert.True(t, IsNetworkError(out.Err()))

	s, err := store.Get()
	require.NoError(t, err)
	assert.NotNil(t, s, "network errors leave the session alone")
}

func TestDoTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, signedInStore(t), WithTimeout(50*time.Millisecond))
	out, err := c.Do(context.Background(), RequestSpec{URL: "/slow"})
	require.NoError(t, err)
	assert.Equal(t, MsgNetworkError, out.Message)
}

func TestWithTimeoutLeavesCallerHTTPClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := New("http://unused.invalid", nil, WithHTTPClient(shared), WithTimeout(time.Second))
	assert.Same(t, shared, c.httpClient)
	assert.Equal(t, time.Minute, shared.Timeout)

	c = New("http://unused.invalid", nil, WithHTTPClient(nil), WithTimeout(time.Second))
	require.NotNil(t, c.httpClient)
	assert.Equal(t, time.Second, c.httpClient.Timeout)

	c = New("http://unused.invalid", nil)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
}

func TestDoAbsoluteURL(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New("http://unused.invalid", signedInStore(t))
	out, err := c.Do(context.Background(), RequestSpec{URL: srv.URL + "/read_user?mode=list_all"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, hit)
}

func TestOutcomeErr(t *testing.T) {
	assert.NoError(t, Outcome{Success: true}.Err())

	err := Outcome{Status: 404, Message: MsgNotFound}.Err()
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "HTTP 404: Not found", httpErr.Error())

	cause := errors.New("dial tcp: refused")
	err = Outcome{Message: MsgNetworkError, Cause: cause}.Err()
	assert.Equal(t, "Network error: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
