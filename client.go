package goSession

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/authstate"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/transport"
)

// Client defines a public type used by goSession APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config Config

	json      *transport.Client
	multipart *transport.Client

	coordinator *refresh.Coordinator

	auth    *authstate.Store
	roles   *role.Gate
	routes  *guard.Controller
	signals *signalDispatcher
	metrics *Metrics
}

// Initialize runs the one-shot current-user fetch. Safe to call from every
// mounting consumer; only one who-am-I call occurs per client lifetime.
func (c *Client) Initialize(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}
	return c.auth.Initialize(ctx)
}

// Login submits credentials and, on success, re-fetches the current user from
// the who-am-I endpoint. The login response is never trusted to carry the
// profile; the auth store stays the single source of truth. Failures are
// reported in the result, never as a panic or error.
func (c *Client) Login(ctx context.Context, creds Credentials) AuthResult {
	if c == nil {
		return AuthResult{OK: false, Message: ErrClientNotReady.Error()}
	}

	result := c.auth.Login(ctx, creds.Email, creds.Password)
	if result.OK {
		c.metrics.Inc(MetricLoginSuccess)
	} else {
		c.metrics.Inc(MetricLoginFailure)
	}
	return result
}

// Register describes the register operation and its observable behavior.
//
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Register(ctx context.Context, input RegisterInput) AuthResult {
	if c == nil {
		return AuthResult{OK: false, Message: ErrClientNotReady.Error()}
	}

	result := c.auth.Register(ctx, input.PreferredName, input.Email, input.Password)
	if result.OK {
		c.metrics.Inc(MetricRegisterSuccess)
	} else {
		c.metrics.Inc(MetricRegisterFailure)
	}
	return result
}

// Logout calls the logout endpoint and clears the local user unconditionally:
// even when the backend call fails, the client-side session ends. The backend
// error is returned for diagnostics.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}

	err := c.auth.Logout(ctx)
	c.metrics.Inc(MetricLogout)
	c.signals.Emit(ctx, SessionSignal{
		Timestamp: time.Now(),
		Type:      SignalLoggedOut,
	})
	return err
}

// RefreshIdentity re-runs the who-am-I fetch, replacing the stored user. Used
// after profile edits or password changes that may invalidate cached identity
// data. Returns [ErrNotAuthenticated] when the backend no longer recognizes
// the session.
func (c *Client) RefreshIdentity(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}

	c.metrics.Inc(MetricIdentityRefresh)
	if err := c.auth.Refresh(ctx); err != nil {
		if transport.IsStatus(err, http.StatusUnauthorized) {
			return ErrNotAuthenticated
		}
		return err
	}
	return nil
}

// CurrentUser returns a copy of the stored user, or nil when anonymous.
func (c *Client) CurrentUser() *CurrentUser {
	if c == nil {
		return nil
	}
	return c.auth.CurrentUser()
}

// Authenticated reports whether a current user is stored.
func (c *Client) Authenticated() bool {
	return c != nil && c.auth.Authenticated()
}

// Subscribe registers fn for auth state snapshots. See [authstate.Store.Subscribe].
func (c *Client) Subscribe(fn func(AuthSnapshot)) (cancel func()) {
	if c == nil {
		return func() {}
	}
	return c.auth.Subscribe(fn)
}

// HasAnyRole runs the remote role check for the current user. Fail closed.
func (c *Client) HasAnyRole(ctx context.Context, required []string) bool {
	if c == nil {
		return false
	}
	return c.roles.HasAnyRole(ctx, required)
}

// Navigate evaluates the route access controller for a navigation to location.
func (c *Client) Navigate(ctx context.Context, location string) guard.Decision {
	if c == nil {
		return guard.Decision{Action: guard.ActionRedirect, State: guard.StateRedirecting}
	}
	return c.routes.Navigate(ctx, location)
}

// JSON returns the JSON transport for portfolio data calls beyond the session
// surface.
func (c *Client) JSON() *transport.Client {
	if c == nil {
		return nil
	}
	return c.json
}

// Multipart returns the multipart transport for file-bearing requests.
func (c *Client) Multipart() *transport.Client {
	if c == nil {
		return nil
	}
	return c.multipart
}

// UploadForm submits a multipart form through the multipart transport.
func (c *Client) UploadForm(ctx context.Context, path string, form transport.Form, out any) error {
	if c == nil {
		return ErrClientNotReady
	}
	return c.multipart.PostMultipart(ctx, path, form, out)
}

// Routes returns the route access controller for host integration (observer
// registration, late route additions).
func (c *Client) Routes() *guard.Controller {
	if c == nil {
		return nil
	}
	return c.routes
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// SignalsDropped reports signals dropped due to dispatcher backpressure.
func (c *Client) SignalsDropped() uint64 {
	if c == nil || c.signals == nil {
		return 0
	}
	return c.signals.Dropped()
}

// SessionReport describes the sessionreport operation and its observable behavior.
func (c *Client) SessionReport() SessionReport {
	if c == nil {
		return SessionReport{}
	}
	return SessionReport{
		BaseURL:                c.config.Transport.BaseURL,
		SharedRefreshState:     !c.config.Refresh.PerTransportState,
		RefreshThrottleEnabled: c.config.Refresh.Throttle.Enabled,
		MetricsEnabled:         c.config.Metrics.Enabled,
		SignalsEnabled:         c.config.Signals.Enabled,
		GuardedRoutes:          c.routes.Routes(),
	}
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.signals != nil {
		c.signals.Close()
	}
}

/*
====================================
BACKEND ADAPTERS
====================================
*/

// authBackend implements authstate.Backend on the JSON transport.
type authBackend struct {
	json    *transport.Client
	cfg     *Config
	metrics *Metrics
}

func (b *authBackend) FetchCurrentUser(ctx context.Context) (*authstate.User, error) {
	start := time.Now()
	var user authstate.User
	if err := b.json.Get(ctx, b.cfg.endpoint(b.cfg.Endpoints.Me), &user); err != nil {
		return nil, err
	}
	b.metrics.Observe(MetricIdentityLatency, time.Since(start))
	return &user, nil
}

func (b *authBackend) SubmitLogin(ctx context.Context, email, password string) error {
	return b.json.Post(ctx, b.cfg.endpoint(b.cfg.Endpoints.Login), Credentials{Email: email, Password: password}, nil)
}

func (b *authBackend) SubmitRegistration(ctx context.Context, preferredName, email, password string) error {
	input := RegisterInput{PreferredName: preferredName, Email: email, Password: password}
	return b.json.Post(ctx, b.cfg.endpoint(b.cfg.Endpoints.Register), input, nil)
}

func (b *authBackend) SubmitLogout(ctx context.Context) error {
	return b.json.Post(ctx, b.cfg.endpoint(b.cfg.Endpoints.Logout), nil, nil)
}

// roleValidator implements role.Validator on the JSON transport.
type roleValidator struct {
	json *transport.Client
	cfg  *Config
}

type roleValidationRequest struct {
	RequiredRoles []string `json:"required_roles"`
}

type roleValidationResponse struct {
	HasRole bool `json:"has_role"`
}

func (v *roleValidator) ValidateRoles(ctx context.Context, required []string) (bool, error) {
	var resp roleValidationResponse
	req := roleValidationRequest{RequiredRoles: required}
	if err := v.json.Post(ctx, v.cfg.endpoint(v.cfg.Endpoints.RoleValidator), req, &resp); err != nil {
		return false, err
	}
	return resp.HasRole, nil
}
