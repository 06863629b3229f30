package goSession

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/MrEthical07/goSession/authstate"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/transport"
)

type routeRegistration struct {
	pattern string
	spec    RouteSpec
}

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	httpClient *http.Client
	sink       SignalSink
	routes     []routeRegistration

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL describes the withbaseurl operation and its observable behavior.
//
// WithBaseURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Transport.BaseURL = baseURL
	return b
}

// WithHTTPClient supplies the http.Client shared by both transports. A cookie
// jar is installed when the client has none: cookie-held session state is the
// whole point.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithSignalSink describes the withsignalsink operation and its observable behavior.
//
// WithSignalSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSignalSink(sink SignalSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithRoute registers a guarded route pattern. Patterns match in registration
// order; "/admin/*" style wildcards cover subtrees.
func (b *Builder) WithRoute(pattern string, spec RouteSpec) *Builder {
	b.routes = append(b.routes, routeRegistration{pattern: pattern, spec: spec})
	return b
}

// WithDefaultRoutes registers the portfolio application's route set: public-only
// login/signup/forgot-password/verify-otp, auth-required /my-account, and
// /admin/* gated on the super_admin role.
func (b *Builder) WithDefaultRoutes() *Builder {
	b.WithRoute("/login", RouteSpec{Access: AccessPublicOnly})
	b.WithRoute("/signup", RouteSpec{Access: AccessPublicOnly})
	b.WithRoute("/forgot-password", RouteSpec{Access: AccessPublicOnly})
	b.WithRoute("/verify-otp", RouteSpec{Access: AccessPublicOnly})
	b.WithRoute("/my-account", RouteSpec{Access: AccessRequireAuth})
	b.WithRoute("/admin/*", RouteSpec{Access: AccessRequireRoles, Roles: []string{"super_admin"}})
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Transport.RequestTimeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	metrics := NewMetrics(cfg.Metrics)
	signals := newSignalDispatcher(cfg.Signals, b.sink)

	client := &Client{
		config:  cfg,
		metrics: metrics,
		signals: signals,
	}

	// -------- REFRESH COORDINATION --------
	hooks := refresh.Hooks{
		Success: func() { metrics.Inc(MetricRefreshSuccess) },
		Failure: func(err error) {
			if errors.Is(err, refresh.ErrThrottled) {
				metrics.Inc(MetricRefreshThrottled)
				signals.Emit(nil, SessionSignal{
					Timestamp: time.Now(),
					Type:      SignalRefreshThrottled,
					Error:     err.Error(),
				})
				return
			}
			metrics.Inc(MetricRefreshFailure)
			signals.Emit(nil, SessionSignal{
				Timestamp: time.Now(),
				Type:      SignalSessionExpired,
				Error:     err.Error(),
			})
		},
		Coalesced: func() { metrics.Inc(MetricRefreshCoalesced) },
	}

	jsonCoordinator := refresh.NewCoordinator(refresh.Config{
		Throttle: refresh.ThrottleConfig{
			Enabled:     cfg.Refresh.Throttle.Enabled,
			MaxAttempts: cfg.Refresh.Throttle.MaxAttempts,
			Cooldown:    cfg.Refresh.Throttle.Cooldown,
		},
		Hooks: hooks,
	})
	multipartCoordinator := jsonCoordinator
	if cfg.Refresh.PerTransportState {
		multipartCoordinator = refresh.NewCoordinator(refresh.Config{
			Throttle: refresh.ThrottleConfig{
				Enabled:     cfg.Refresh.Throttle.Enabled,
				MaxAttempts: cfg.Refresh.Throttle.MaxAttempts,
				Cooldown:    cfg.Refresh.Throttle.Cooldown,
			},
			Hooks: hooks,
		})
	}
	client.coordinator = jsonCoordinator

	// -------- TRANSPORTS --------
	transportHooks := transport.Hooks{
		CSRFMissing: func(path string) {
			metrics.Inc(MetricCSRFMissing)
			signals.Emit(nil, SessionSignal{
				Timestamp: time.Now(),
				Type:      SignalCSRFMissing,
				Path:      path,
			})
		},
		RequestRetried: func(string) { metrics.Inc(MetricRequestRetried) },
	}

	jsonTransport, err := transport.New(transport.Config{
		BaseURL:        cfg.Transport.BaseURL,
		HTTPClient:     httpClient,
		CSRFCookieName: cfg.Transport.CSRFCookieName,
		CSRFHeaderName: cfg.Transport.CSRFHeaderName,
		RefreshPath:    cfg.endpoint(cfg.Endpoints.Refresh),
		AuthAllowList:  cfg.Endpoints.AuthAllowList,
		Coordinator:    jsonCoordinator,
		Hooks:          transportHooks,
	})
	if err != nil {
		return nil, err
	}
	client.json = jsonTransport

	multipartTransport, err := transport.New(transport.Config{
		BaseURL:        cfg.Transport.BaseURL,
		HTTPClient:     httpClient,
		CSRFCookieName: cfg.Transport.CSRFCookieName,
		CSRFHeaderName: cfg.Transport.CSRFHeaderName,
		RefreshPath:    cfg.endpoint(cfg.Endpoints.Refresh),
		AuthAllowList:  cfg.Endpoints.AuthAllowList,
		Coordinator:    multipartCoordinator,
		Hooks:          transportHooks,
	})
	if err != nil {
		return nil, err
	}
	client.multipart = multipartTransport

	// -------- AUTH STATE --------
	client.auth = authstate.NewStore(&authBackend{
		json:    jsonTransport,
		cfg:     &client.config,
		metrics: metrics,
	})

	// A failed refresh broadcasts session expiry; the auth store observes the
	// signal instead of being called by the transport layer.
	signals.subscribe(func(signal SessionSignal) {
		if signal.Type != SignalSessionExpired {
			return
		}
		client.auth.ForceLogout()
		metrics.Inc(MetricForcedLogout)
	})

	// -------- ROLE GATE --------
	client.roles = role.NewGate(
		&roleValidator{json: jsonTransport, cfg: &client.config},
		client.auth.Authenticated,
		role.Hooks{
			Allowed: func() { metrics.Inc(MetricRoleCheckAllowed) },
			Denied:  func() { metrics.Inc(MetricRoleCheckDenied) },
			Error: func(err error) {
				metrics.Inc(MetricRoleCheckError)
				signals.Emit(nil, SessionSignal{
					Timestamp: time.Now(),
					Type:      SignalRoleCheckFailed,
					Error:     err.Error(),
				})
			},
		},
	)

	// -------- ROUTE ACCESS CONTROLLER --------
	client.routes = guard.NewController(guard.Hooks{
		Rendered:   func(string) { metrics.Inc(MetricNavigationRender) },
		Redirected: func(string, string) { metrics.Inc(MetricNavigationRedirect) },
		Denied:     func(string) { metrics.Inc(MetricNavigationDenied) },
	})
	for _, reg := range b.routes {
		var g *guard.Guard
		switch reg.spec.Access {
		case AccessPublicOnly:
			g = guard.PublicOnly(client.auth, cfg.Routes.Home)
		case AccessRequireRoles:
			g = guard.RequireRoles(client.auth, client.roles, reg.spec.Roles, cfg.Routes.Login, cfg.Routes.AccessDenied)
		default:
			g = guard.RequireAuth(client.auth, cfg.Routes.Login)
		}
		client.routes.Handle(reg.pattern, g)
	}

	b.built = true

	return client, nil
}
