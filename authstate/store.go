package authstate

import (
	"context"
	"errors"
	"sync"
	"time"
)

// User is the in-memory representation of the authenticated principal, shaped
// after the backend's /user/me payload.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PreferredName string    `json:"preferred_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// Result is the never-throws outcome of a login or registration attempt. A
// failed attempt carries the server-supplied message when one is available.
type Result struct {
	OK      bool
	Message string
}

// Snapshot is the state delivered to subscribers on every mutation.
type Snapshot struct {
	User        *User
	Initialized bool
}

// Backend is the I/O surface the store needs. It is implemented by the session
// client on top of its JSON transport and injected at construction.
type Backend interface {
	FetchCurrentUser(ctx context.Context) (*User, error)
	SubmitLogin(ctx context.Context, email, password string) error
	SubmitRegistration(ctx context.Context, preferredName, email, password string) error
	SubmitLogout(ctx context.Context) error
}

// Store defines a public type used by goSession APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	backend Backend

	mu          sync.Mutex
	user        *User
	initialized bool
	initDone    chan struct{}
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(backend Backend) *Store {
	return &Store{
		backend:     backend,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Initialize fetches the current user once per store lifetime. Concurrent
// callers share the single underlying who-am-I call; late callers return
// immediately. Failure is not an error: it completes initialization with an
// absent user.
func (s *Store) Initialize(ctx context.Context) error {
	if s == nil {
		return errors.New("nil auth store")
	}

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	if s.initDone != nil {
		done := s.initDone
		s.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	s.initDone = done
	s.mu.Unlock()

	user, err := s.backend.FetchCurrentUser(ctx)
	if err != nil {
		user = nil
	}

	s.mu.Lock()
	s.user = user
	s.initialized = true
	s.initDone = nil
	snapshot, subs := s.snapshotLocked()
	s.mu.Unlock()
	close(done)

	notify(subs, snapshot)
	return nil
}

// Login submits credentials and, on success, re-runs the who-am-I fetch so the
// stored user reflects the new session. The login response itself is never
// trusted to carry the profile. Failures are returned as a Result, never as an
// error.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	if err := s.backend.SubmitLogin(ctx, email, password); err != nil {
		return Result{OK: false, Message: messageFrom(err)}
	}

	// Identity comes from who-am-I, not the login response. A failed re-fetch
	// leaves the user absent; the session cookie is still set, so the next
	// Refresh can recover.
	_ = s.Refresh(ctx)
	return Result{OK: true}
}

// Register submits a registration with the same never-throws contract as
// Login. Whether the backend auto-logs-in is its business: the follow-up
// who-am-I fetch yields either the new user or anonymous.
func (s *Store) Register(ctx context.Context, preferredName, email, password string) Result {
	if err := s.backend.SubmitRegistration(ctx, preferredName, email, password); err != nil {
		return Result{OK: false, Message: messageFrom(err)}
	}

	_ = s.Refresh(ctx)
	return Result{OK: true}
}

// Logout calls the logout endpoint and clears the in-memory user regardless of
// the outcome: the user's intent to leave the account state is honored locally
// even when the backend is unreachable. The backend error is returned for
// diagnostics only.
func (s *Store) Logout(ctx context.Context) error {
	err := s.backend.SubmitLogout(ctx)
	s.setUser(nil)
	return err
}

// Refresh re-runs the who-am-I fetch and replaces the stored user. A failed
// check stores an absent user and reports the cause.
func (s *Store) Refresh(ctx context.Context) error {
	user, err := s.backend.FetchCurrentUser(ctx)
	if err != nil {
		s.setUser(nil)
		return err
	}
	s.setUser(user)
	return nil
}

// ForceLogout clears the in-memory user without a backend call. It is invoked
// when the transport layer broadcasts a session-expired signal.
func (s *Store) ForceLogout() {
	if s == nil {
		return
	}
	s.setUser(nil)
}

// CurrentUser returns a copy of the stored user, or nil when anonymous.
func (s *Store) CurrentUser() *User {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a current user is stored.
func (s *Store) Authenticated() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Initialized reports whether the initial who-am-I fetch has completed.
func (s *Store) Initialized() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Subscribe registers fn to be called with a state snapshot after every
// mutation. Notification happens on the mutating goroutine before the mutating
// call returns, so a completed login or logout is never observed stale. The
// returned cancel func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	if s == nil || fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) setUser(user *User) {
	s.mu.Lock()
	s.user = user
	s.initialized = true
	snapshot, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snapshot)
}

// snapshotLocked copies the subscriber list so callbacks run outside the lock;
// a callback may call back into the store.
func (s *Store) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snapshot := Snapshot{Initialized: s.initialized}
	if s.user != nil {
		u := *s.user
		snapshot.User = &u
	}

	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return snapshot, subs
}

func notify(subs []func(Snapshot), snapshot Snapshot) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

// messageFrom surfaces a server-supplied message when the error carries one.
// The interface is satisfied by transport.APIError without importing it here.
func messageFrom(err error) string {
	var carrier interface{ APIMessage() string }
	if errors.As(err, &carrier) {
		if msg := carrier.APIMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
