package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef defines a public type used by goSession APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goSession APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session client.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful login attempts."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed login attempts."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricRegisterFailure, Name: "gosession_register_failure_total", Help: "Failed registrations."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Explicit logouts."},
	{ID: goSession.MetricForcedLogout, Name: "gosession_forced_logout_total", Help: "Forced logouts after refresh failure."},
	{ID: goSession.MetricIdentityRefresh, Name: "gosession_identity_refresh_total", Help: "Explicit identity re-checks."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful session refresh calls."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed session refresh calls."},
	{ID: goSession.MetricRefreshCoalesced, Name: "gosession_refresh_coalesced_total", Help: "Callers queued behind an in-flight refresh."},
	{ID: goSession.MetricRefreshThrottled, Name: "gosession_refresh_throttled_total", Help: "Refresh attempts denied by the client-side throttle."},
	{ID: goSession.MetricRequestRetried, Name: "gosession_request_retried_total", Help: "Requests replayed after a successful refresh."},
	{ID: goSession.MetricCSRFMissing, Name: "gosession_csrf_missing_total", Help: "Mutating requests issued without a CSRF cookie."},
	{ID: goSession.MetricRoleCheckAllowed, Name: "gosession_role_check_allowed_total", Help: "Role validations that allowed access."},
	{ID: goSession.MetricRoleCheckDenied, Name: "gosession_role_check_denied_total", Help: "Role validations that denied access."},
	{ID: goSession.MetricRoleCheckError, Name: "gosession_role_check_error_total", Help: "Role validations that failed closed on error."},
	{ID: goSession.MetricNavigationRender, Name: "gosession_navigation_render_total", Help: "Guarded navigations that rendered."},
	{ID: goSession.MetricNavigationRedirect, Name: "gosession_navigation_redirect_total", Help: "Guarded navigations that redirected."},
	{ID: goSession.MetricNavigationDenied, Name: "gosession_navigation_denied_total", Help: "Guarded navigations denied by role."},
}

// HistogramDefs is an exported constant or variable used by the session client.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricIdentityLatency, Name: "gosession_identity_fetch_latency_seconds", Help: "Who-am-I fetch latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session client.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session client.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
