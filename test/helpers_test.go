//go:build integration
// +build integration

package test

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	accessCookie  = "app_session"
	refreshCookie = "refresh_token"
	csrfCookie    = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

type testUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PreferredName string    `json:"preferred_name"`
	Password      string    `json:"-"`
	Role          string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// sessionBackend is a real cookie-session API: JWT access cookie, opaque
// refresh token in Redis, CSRF double-submit. It is what the client is
// specified against, minus the production persistence.
type sessionBackend struct {
	t         *testing.T
	rdb       *redis.Client
	secret    []byte
	accessTTL time.Duration
	users     map[string]testUser

	server *httptest.Server
}

func newSessionBackend(t *testing.T, accessTTL time.Duration) *sessionBackend {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	b := &sessionBackend{
		t:         t,
		rdb:       rdb,
		secret:    []byte("integration-secret"),
		accessTTL: accessTTL,
		users: map[string]testUser{
			"alice@example.com": {
				ID:            "user-1",
				Email:         "alice@example.com",
				PreferredName: "Alice",
				Password:      "correct-horse",
				Role:          "member",
				CreatedAt:     time.Now().UTC(),
			},
			"root@example.com": {
				ID:            "user-2",
				Email:         "root@example.com",
				PreferredName: "Root",
				Password:      "root-password",
				Role:          "super_admin",
				CreatedAt:     time.Now().UTC(),
			},
		},
	}

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/user/login", b.handleLogin)
		r.Post("/user/register", b.handleRegister)
		r.Post("/auth/refresh", b.handleRefresh)
		r.Get("/user/me", b.handleMe)
		r.Post("/user/logout", b.handleLogout)
		r.Post("/user/role-validator", b.handleRoleValidator)
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *sessionBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, ok := b.users[creds.Email]
	if !ok || user.Password != creds.Password {
		writeStatus(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	b.issueSession(w, r, user.ID)
	writeStatus(w, http.StatusOK, "logged in")
}

func (b *sessionBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PreferredName string `json:"preferred_name"`
		Email         string `json:"email"`
		Password      string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if _, exists := b.users[input.Email]; exists {
		writeStatus(w, http.StatusConflict, "email already registered")
		return
	}

	user := testUser{
		ID:            "user-" + randomHex(4),
		Email:         input.Email,
		PreferredName: input.PreferredName,
		Password:      input.Password,
		Role:          "member",
		CreatedAt:     time.Now().UTC(),
	}
	b.users[input.Email] = user

	b.issueSession(w, r, user.ID)
	writeStatus(w, http.StatusCreated, "registered")
}

func (b *sessionBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		writeStatus(w, http.StatusUnauthorized, "no refresh token")
		return
	}
	userID, err := b.rdb.Get(r.Context(), "refresh:"+cookie.Value).Result()
	if err != nil {
		writeStatus(w, http.StatusUnauthorized, "refresh token expired")
		return
	}
	_ = b.rdb.Del(r.Context(), "refresh:"+cookie.Value).Err()

	b.issueSession(w, r, userID)
	writeStatus(w, http.StatusOK, "refreshed")
}

func (b *sessionBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authenticate(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}

func (b *sessionBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !b.validCSRF(r) {
		writeStatus(w, http.StatusForbidden, "csrf token mismatch")
		return
	}
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		_ = b.rdb.Del(r.Context(), "refresh:"+cookie.Value).Err()
	}
	for _, name := range []string{accessCookie, refreshCookie, csrfCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	writeStatus(w, http.StatusOK, "logged out")
}

func (b *sessionBackend) handleRoleValidator(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authenticate(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !b.validCSRF(r) {
		writeStatus(w, http.StatusForbidden, "csrf token mismatch")
		return
	}

	var req struct {
		RequiredRoles []string `json:"required_roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	hasRole := false
	for _, role := range req.RequiredRoles {
		if role == user.Role {
			hasRole = true
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"has_role": hasRole})
}

func (b *sessionBackend) issueSession(w http.ResponseWriter, r *http.Request, userID string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.accessTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		b.t.Errorf("sign access token: %v", err)
		writeStatus(w, http.StatusInternalServerError, "session issue failed")
		return
	}

	refreshToken := randomHex(16)
	if err := b.rdb.Set(r.Context(), "refresh:"+refreshToken, userID, time.Hour).Err(); err != nil {
		b.t.Errorf("store refresh token: %v", err)
		writeStatus(w, http.StatusInternalServerError, "session issue failed")
		return
	}
	csrfToken := randomHex(16)
	if err := b.rdb.Set(r.Context(), "csrf:"+userID, csrfToken, time.Hour).Err(); err != nil {
		b.t.Errorf("store csrf token: %v", err)
		writeStatus(w, http.StatusInternalServerError, "session issue failed")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: accessCookie, Value: access, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: refreshToken, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: csrfToken, Path: "/"})
}

func (b *sessionBackend) authenticate(r *http.Request) (testUser, bool) {
	cookie, err := r.Cookie(accessCookie)
	if err != nil {
		return testUser{}, false
	}

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return testUser{}, false
	}

	for _, user := range b.users {
		if user.ID == claims.Subject {
			return user, true
		}
	}
	return testUser{}, false
}

func (b *sessionBackend) validCSRF(r *http.Request) bool {
	user, ok := b.authenticate(r)
	if !ok {
		return false
	}
	expected, err := b.rdb.Get(r.Context(), "csrf:"+user.ID).Result()
	if err != nil {
		return false
	}
	return r.Header.Get(csrfHeader) == expected
}

// expireAccessTokens re-keys the signer so every outstanding access cookie
// fails validation, forcing the refresh path.
func (b *sessionBackend) expireAccessTokens() {
	b.secret = []byte("rotated-" + randomHex(8))
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
