package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Transport TransportConfig
	Endpoints EndpointConfig
	Refresh   RefreshConfig
	Routes    RouteConfig
	Signals   SignalConfig
	Metrics   MetricsConfig
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig defines a public type used by goSession APIs.
//
// TransportConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TransportConfig struct {
	// BaseURL is the backend origin, e.g. "https://api.example.com". Required.
	BaseURL string
	// RequestTimeout applies to the constructed http.Client when the caller
	// does not supply one. Zero means the transport default.
	RequestTimeout time.Duration
	CSRFCookieName string
	CSRFHeaderName string
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig defines a public type used by goSession APIs.
//
// Paths are joined as Prefix + endpoint, e.g. "/v1" + "/user/me".
type EndpointConfig struct {
	Prefix        string
	Me            string
	Login         string
	Register      string
	Logout        string
	Refresh       string
	RoleValidator string

	// AuthAllowList holds path fragments of authentication endpoints that are
	// never subject to refresh-on-401, preventing refresh loops.
	AuthAllowList []string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig defines a public type used by goSession APIs.
//
// RefreshConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	// PerTransportState gives the JSON and multipart transports independent
	// refresh coordinators. The default (false) shares one coordinator, so
	// the at-most-one-refresh invariant holds across both transports; the
	// split mode exists for bug-compatible deployments against backends that
	// tolerate parallel refresh calls.
	PerTransportState bool

	Throttle ThrottleConfig
}

// ThrottleConfig defines a public type used by goSession APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
}

/*
====================================
ROUTE CONFIG
====================================
*/

// RouteConfig defines a public type used by goSession APIs.
//
// RouteConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RouteConfig struct {
	Home            string
	Login           string
	AccessDenied    string
	AlreadyLoggedIn string
}

/*
====================================
SIGNAL CONFIG
====================================
*/

// SignalConfig defines a public type used by goSession APIs.
//
// SignalConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignalConfig struct {
	// Enabled gates delivery to the external SignalSink. Internal observers
	// (forced logout on session expiry) run regardless.
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration matching the portfolio backend's
// documented contract. Only Transport.BaseURL must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			CSRFCookieName: "csrf_token",
			CSRFHeaderName: "X-CSRF-Token",
		},
		Endpoints: EndpointConfig{
			Prefix:        "/v1",
			Me:            "/user/me",
			Login:         "/user/login",
			Register:      "/user/register",
			Logout:        "/user/logout",
			Refresh:       "/auth/refresh",
			RoleValidator: "/user/role-validator",
			AuthAllowList: []string{
				"/auth/refresh",
				"/auth/login",
				"/auth/logout",
				"/auth/signup",
				"/user/login",
				"/user/register",
				"/user/logout",
			},
		},
		Refresh: RefreshConfig{
			Throttle: ThrottleConfig{
				Enabled:     true,
				MaxAttempts: 5,
				Cooldown:    30 * time.Second,
			},
		},
		Routes: RouteConfig{
			Home:            "/",
			Login:           "/login",
			AccessDenied:    "/access-denied",
			AlreadyLoggedIn: "/already-logged-in",
		},
		Signals: SignalConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Endpoints.AuthAllowList = append([]string(nil), cfg.Endpoints.AuthAllowList...)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Transport.BaseURL == "" {
		return errors.New("Transport.BaseURL required")
	}
	u, err := url.Parse(c.Transport.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Transport.BaseURL must be an absolute URL")
	}

	for _, ep := range []struct{ name, path string }{
		{"Endpoints.Me", c.Endpoints.Me},
		{"Endpoints.Login", c.Endpoints.Login},
		{"Endpoints.Register", c.Endpoints.Register},
		{"Endpoints.Logout", c.Endpoints.Logout},
		{"Endpoints.Refresh", c.Endpoints.Refresh},
		{"Endpoints.RoleValidator", c.Endpoints.RoleValidator},
	} {
		if ep.path == "" || !strings.HasPrefix(ep.path, "/") {
			return errors.New(ep.name + " must be a leading-slash path")
		}
	}

	if c.Refresh.Throttle.Enabled {
		if c.Refresh.Throttle.MaxAttempts <= 0 {
			return errors.New("Refresh.Throttle.MaxAttempts must be positive when throttling is enabled")
		}
		if c.Refresh.Throttle.Cooldown <= 0 {
			return errors.New("Refresh.Throttle.Cooldown must be positive when throttling is enabled")
		}
	}

	if c.Routes.Login == "" || c.Routes.Home == "" || c.Routes.AccessDenied == "" {
		return errors.New("Routes.Login, Routes.Home and Routes.AccessDenied required")
	}

	if c.Signals.Enabled && c.Signals.BufferSize <= 0 {
		return errors.New("Signals.BufferSize must be positive when signals are enabled")
	}

	return nil
}

// endpoint joins the versioned prefix with an endpoint path.
func (c *Config) endpoint(path string) string {
	return c.Endpoints.Prefix + path
}
