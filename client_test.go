package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/guard"
)

// fakeBackend is the cookie-session API surface the client is built against.
// Session validity is split in two: loggedIn models the long-lived refresh
// cookie, accessOK the short-lived access cookie that refresh renews.
type fakeBackend struct {
	mu       sync.Mutex
	loggedIn bool
	accessOK bool

	failRefresh bool
	failLogout  bool
	roleAnswer  bool

	meCalls      atomic.Int64
	refreshCalls atomic.Int64
	roleCalls    atomic.Int64

	lastCSRFHeader atomic.Value

	// refreshGate, when set, holds the refresh handler until closed.
	refreshGate chan struct{}

	server *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/user/me", b.me)
	mux.HandleFunc("/v1/user/login", b.login)
	mux.HandleFunc("/v1/user/logout", b.logout)
	mux.HandleFunc("/v1/auth/refresh", b.refresh)
	mux.HandleFunc("/v1/user/role-validator", b.roleValidator)

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)
	b.mu.Lock()
	ok := b.accessOK
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":             "user-1",
		"email":          "alice@example.com",
		"preferred_name": "Alice",
		"created_at":     time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)

	if creds.Email != "alice@example.com" || creds.Password != "correct-horse" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
		return
	}

	b.mu.Lock()
	b.loggedIn = true
	b.accessOK = true
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "csrf_token", Value: "tok-1", Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in"})
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	b.lastCSRFHeader.Store(r.Header.Get("X-CSRF-Token"))

	b.mu.Lock()
	fail := b.failLogout
	if !fail {
		b.loggedIn = false
		b.accessOK = false
	}
	b.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "logout backend down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (b *fakeBackend) refresh(w http.ResponseWriter, r *http.Request) {
	if gate := b.refreshGate; gate != nil {
		<-gate
	}
	b.refreshCalls.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRefresh || !b.loggedIn {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "session expired"})
		return
	}
	b.accessOK = true
	writeJSON(w, http.StatusOK, map[string]string{"message": "refreshed"})
}

func (b *fakeBackend) roleValidator(w http.ResponseWriter, r *http.Request) {
	b.roleCalls.Add(1)
	b.lastCSRFHeader.Store(r.Header.Get("X-CSRF-Token"))

	b.mu.Lock()
	ok := b.accessOK
	answer := b.roleAnswer
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_role": answer})
}

func (b *fakeBackend) expireAccess() {
	b.mu.Lock()
	b.accessOK = false
	b.mu.Unlock()
}

func (b *fakeBackend) killSession() {
	b.mu.Lock()
	b.loggedIn = false
	b.accessOK = false
	b.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, backend *fakeBackend, sink SignalSink) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Transport.BaseURL = backend.server.URL
	// Deterministic tests: no cooldown interference between refreshes.
	cfg.Refresh.Throttle.Enabled = false

	client, err := New().
		WithConfig(cfg).
		WithSignalSink(sink).
		WithDefaultRoutes().
		Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func loginAlice(t *testing.T, client *Client) {
	t.Helper()
	result := client.Login(context.Background(), Credentials{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	if !result.OK {
		t.Fatalf("login failed: %+v", result)
	}
}

func TestClientInitializeAnonymous(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if client.Authenticated() {
		t.Fatal("no session, must stay anonymous")
	}

	d := client.Navigate(context.Background(), "/my-account")
	if d.Action != guard.ActionRedirect || d.Target != "/login" {
		t.Fatalf("anonymous /my-account must redirect to login, got %+v", d)
	}
	if d.ReturnTo != "/my-account" {
		t.Fatalf("redirect must carry the requested location, got %q", d.ReturnTo)
	}
}

func TestClientLoginRefetchesIdentity(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	loginAlice(t, client)

	user := client.CurrentUser()
	if user == nil || user.Email != "alice@example.com" || user.PreferredName != "Alice" {
		t.Fatalf("unexpected user from who-am-I refetch: %+v", user)
	}
	if backend.meCalls.Load() == 0 {
		t.Fatal("login must populate identity via who-am-I, not the login response")
	}

	d := client.Navigate(context.Background(), "/my-account")
	if d.Action != guard.ActionRender {
		t.Fatalf("authenticated /my-account must render, got %+v", d)
	}

	d = client.Navigate(context.Background(), "/login")
	if d.Action != guard.ActionRedirect || d.Target != "/" {
		t.Fatalf("authenticated /login must redirect home, got %+v", d)
	}
	if d.ReturnTo != "" {
		t.Fatalf("public-only redirect carries no return location, got %q", d.ReturnTo)
	}
}

func TestClientLoginFailureNeverPanics(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	result := client.Login(context.Background(), Credentials{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	if result.OK {
		t.Fatal("expected login failure")
	}
	if result.Message != "invalid email or password" {
		t.Fatalf("expected server message, got %q", result.Message)
	}
	if client.Authenticated() {
		t.Fatal("failed login must not authenticate")
	}
	if backend.refreshCalls.Load() != 0 {
		t.Fatal("login 401 must never trigger a session refresh")
	}
}

func TestClientConcurrent401sSingleRefresh(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	loginAlice(t, client)

	const n = 8
	backend.expireAccess()

	// Hold refresh until every caller has taken its 401 so they all queue on
	// the shared coordinator.
	gate := make(chan struct{})
	backend.refreshGate = gate
	baselineMe := backend.meCalls.Load()

	go func() {
		for backend.meCalls.Load() < baselineMe+n {
			time.Sleep(time.Millisecond)
		}
		close(gate)
	}()

	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			errs <- client.RefreshIdentity(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	backend.refreshGate = nil

	for err := range errs {
		if err != nil {
			t.Fatalf("identity refresh after shared session refresh: %v", err)
		}
	}
	if got := backend.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected one refresh across %d concurrent 401s, got %d", n, got)
	}
	if !client.Authenticated() {
		t.Fatal("session must survive the shared refresh")
	}
}

func TestClientForcedLogoutOnRefreshFailure(t *testing.T) {
	backend := newFakeBackend(t)
	sink := NewChannelSink(8)
	client := newTestClient(t, backend, sink)

	loginAlice(t, client)

	var snapshots []AuthSnapshot
	client.Subscribe(func(s AuthSnapshot) {
		snapshots = append(snapshots, s)
	})

	backend.killSession()

	err := client.RefreshIdentity(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if client.Authenticated() {
		t.Fatal("failed refresh must clear the local user")
	}
	if len(snapshots) == 0 || snapshots[len(snapshots)-1].User != nil {
		t.Fatalf("subscriber must observe the forced logout, got %v", snapshots)
	}
	if got := client.MetricsSnapshot().Counters[MetricForcedLogout]; got == 0 {
		t.Fatal("forced logout must be counted")
	}

	select {
	case signal := <-sink.Signals():
		if signal.Type != SignalSessionExpired {
			t.Fatalf("expected session_expired signal, got %+v", signal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session_expired signal never delivered")
	}
}

func TestClientLogoutClearsLocallyOnBackendFailure(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	loginAlice(t, client)
	backend.failLogout = true

	err := client.Logout(context.Background())
	if err == nil {
		t.Fatal("expected the backend failure surfaced")
	}
	if client.Authenticated() {
		t.Fatal("logout must clear the local user even when the backend fails")
	}
}

func TestClientMutatingRequestsCarryCSRF(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	loginAlice(t, client)
	_ = client.Logout(context.Background())

	if got, _ := backend.lastCSRFHeader.Load().(string); got != "tok-1" {
		t.Fatalf("expected CSRF header tok-1 from the login-set cookie, got %q", got)
	}
}

func TestClientRoleNavigation(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	// Anonymous: straight to login, no role-validator traffic.
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	d := client.Navigate(context.Background(), "/admin/users")
	if d.Action != guard.ActionRedirect || d.Target != "/login" {
		t.Fatalf("anonymous admin visit must redirect to login, got %+v", d)
	}
	if backend.roleCalls.Load() != 0 {
		t.Fatal("role validation must never run for an anonymous visitor")
	}

	loginAlice(t, client)

	// Authenticated without the role: denied.
	d = client.Navigate(context.Background(), "/admin/users")
	if d.State != guard.StateDenied || d.Target != "/access-denied" {
		t.Fatalf("missing role must deny, got %+v", d)
	}
	if backend.roleCalls.Load() != 1 {
		t.Fatalf("expected one role check, got %d", backend.roleCalls.Load())
	}

	// Authenticated with the role: renders.
	backend.roleAnswer = true
	d = client.Navigate(context.Background(), "/admin/users")
	if d.Action != guard.ActionRender || d.State != guard.StateAuthorized {
		t.Fatalf("role holder must render, got %+v", d)
	}
}

func TestClientHasAnyRoleFailsClosed(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	loginAlice(t, client)
	backend.server.Close()

	if client.HasAnyRole(context.Background(), []string{"super_admin"}) {
		t.Fatal("unreachable validator must deny")
	}
	if got := client.MetricsSnapshot().Counters[MetricRoleCheckError]; got == 0 {
		t.Fatal("validation error must be counted")
	}
}

func TestClientMetricsCounters(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	loginAlice(t, client)
	client.Navigate(context.Background(), "/my-account")
	_ = client.Logout(context.Background())

	counters := client.MetricsSnapshot().Counters
	if counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success = %d", counters[MetricLoginSuccess])
	}
	if counters[MetricNavigationRender] != 1 {
		t.Fatalf("navigation render = %d", counters[MetricNavigationRender])
	}
	if counters[MetricLogout] != 1 {
		t.Fatalf("logout = %d", counters[MetricLogout])
	}
}

func TestClientSessionReport(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, nil)

	report := client.SessionReport()
	if report.BaseURL != backend.server.URL {
		t.Fatalf("report base URL = %q", report.BaseURL)
	}
	if !report.SharedRefreshState {
		t.Fatal("default refresh state must be shared")
	}
	if report.GuardedRoutes != 6 {
		t.Fatalf("default route table size = %d", report.GuardedRoutes)
	}
}

func TestBuilderOneShot(t *testing.T) {
	backend := newFakeBackend(t)

	builder := New().WithBaseURL(backend.server.URL)
	if _, err := builder.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := builder.Build(); err == nil {
		t.Fatal("second build on the same builder must fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("build without a base URL must fail")
	}
	if _, err := New().WithBaseURL("not a url").Build(); err == nil {
		t.Fatal("build with a malformed base URL must fail")
	}
}

func TestNilClientIsInert(t *testing.T) {
	var client *Client

	if err := client.Initialize(context.Background()); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("initialize on nil client: %v", err)
	}
	if result := client.Login(context.Background(), Credentials{}); result.OK {
		t.Fatal("nil client login must fail")
	}
	if client.Authenticated() || client.CurrentUser() != nil {
		t.Fatal("nil client must be anonymous")
	}
	if client.HasAnyRole(context.Background(), []string{"admin"}) {
		t.Fatal("nil client must deny roles")
	}
	client.Close()
}
