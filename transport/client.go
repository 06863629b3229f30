package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/refresh"
)

const (
	// DefaultCSRFCookieName is an exported constant or variable used by the session client.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is an exported constant or variable used by the session client.
	DefaultCSRFHeaderName = "X-CSRF-Token"

	requestIDHeader = "X-Request-ID"

	maxResponseBody = 4 << 20
)

// Hooks defines a public type used by goSession APIs.
//
// Hooks instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hooks struct {
	// CSRFMissing fires when a mutating request is issued without a CSRF
	// cookie available. The request still proceeds.
	CSRFMissing func(path string)
	// RequestRetried fires when a request is replayed after a successful
	// refresh.
	RequestRetried func(path string)
}

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client

	CSRFCookieName string
	CSRFHeaderName string

	// RefreshPath is the full request path of the refresh endpoint,
	// e.g. "/v1/auth/refresh".
	RefreshPath string

	// AuthAllowList holds path fragments of authentication endpoints. A 401
	// from a request whose path contains any fragment never triggers refresh.
	AuthAllowList []string

	Coordinator *refresh.Coordinator

	Hooks Hooks
}

// Client defines a public type used by goSession APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	csrfCookie  string
	csrfHeader  string
	refreshPath string
	allowList   []string
	coordinator *refresh.Coordinator
	hooks       Hooks
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base URL required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("transport: base URL must be absolute")
	}

	if cfg.Coordinator == nil {
		return nil, errors.New("transport: refresh coordinator required")
	}
	if cfg.RefreshPath == "" {
		return nil, errors.New("transport: refresh path required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	csrfCookie := cfg.CSRFCookieName
	if csrfCookie == "" {
		csrfCookie = DefaultCSRFCookieName
	}
	csrfHeader := cfg.CSRFHeaderName
	if csrfHeader == "" {
		csrfHeader = DefaultCSRFHeaderName
	}

	return &Client{
		baseURL:     base,
		httpClient:  httpClient,
		csrfCookie:  csrfCookie,
		csrfHeader:  csrfHeader,
		refreshPath: cfg.RefreshPath,
		allowList:   append([]string(nil), cfg.AuthAllowList...),
		coordinator: cfg.Coordinator,
		hooks:       cfg.Hooks,
	}, nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post describes the post operation and its observable behavior.
//
// Post may return an error when input validation, dependency calls, or security checks fail.
// Post does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// Patch describes the patch operation and its observable behavior.
//
// Patch may return an error when input validation, dependency calls, or security checks fail.
// Patch does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, in, out)
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

// PostMultipart submits a multipart/form-data request. The form is encoded
// once so the body can be replayed after a refresh-triggered retry.
func (c *Client) PostMultipart(ctx context.Context, path string, form Form, out any) error {
	payload, contentType, err := encodeForm(form)
	if err != nil {
		return fmt.Errorf("transport: encode multipart form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, contentType, out)
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() *url.URL {
	if c == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar shared with the backend session.
func (c *Client) Jar() http.CookieJar {
	if c == nil {
		return nil
	}
	return c.httpClient.Jar
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("transport: encode request body: %w", err)
		}
		payload = encoded
	}
	return c.do(ctx, method, path, payload, "application/json", out)
}

// do runs one request with the refresh-on-401 policy. A request is retried at
// most once, and only after the coordinator reports a successful refresh; the
// one-shot limit is structural, so a 401 on the replay propagates as-is.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, out any) error {
	err := c.attempt(ctx, method, path, payload, contentType, out)
	if !c.refreshable(path, err) {
		return err
	}

	outcome := c.coordinator.Execute(ctx, c.refreshSession)
	if !outcome.Retry {
		return outcome.Err
	}

	if c.hooks.RequestRetried != nil {
		c.hooks.RequestRetried(path)
	}
	return c.attempt(ctx, method, path, payload, contentType, out)
}

func (c *Client) refreshable(path string, err error) bool {
	if !IsStatus(err, http.StatusUnauthorized) {
		return false
	}
	return !c.exempt(path)
}

// exempt reports whether path belongs to an authentication endpoint. Matching
// is by fragment containment: "/v1/auth/refresh" matches "/auth/refresh".
func (c *Client) exempt(path string) bool {
	for _, fragment := range c.allowList {
		if fragment != "" && strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

// refreshSession is the coordinator's refresh function: one POST to the
// refresh endpoint with cookies attached and an empty body. It is issued
// directly, bypassing the 401 policy, so a 401 here terminates.
func (c *Client) refreshSession(ctx context.Context) error {
	return c.attempt(ctx, http.MethodPost, c.refreshPath, nil, "application/json", nil)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, contentType string, out any) error {
	u := c.resolve(path)

	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}

	if len(payload) > 0 && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID(ctx))

	c.attachCSRF(req, method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransportFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("transport: decode response: %w", err)
		}
	}

	return nil
}

// attachCSRF sets the CSRF header when the token cookie is readable. A missing
// token on a mutating request is diagnosed but never fatal: the backend is the
// authority on rejecting it.
func (c *Client) attachCSRF(req *http.Request, method, path string) {
	token, ok := c.csrfToken()
	if ok {
		req.Header.Set(c.csrfHeader, token)
		return
	}

	if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
		return
	}

	slog.Warn("csrf token cookie missing, proceeding without header",
		slog.String("cookie", c.csrfCookie),
		slog.String("path", path),
	)
	if c.hooks.CSRFMissing != nil {
		c.hooks.CSRFMissing(path)
	}
}

// csrfToken serializes the jar's cookies for the base URL into a Cookie header
// string and extracts the token with the exact-match parser.
func (c *Client) csrfToken() (string, bool) {
	cookies := c.httpClient.Jar.Cookies(c.baseURL)
	if len(cookies) == 0 {
		return "", false
	}

	var b strings.Builder
	for i, cookie := range cookies {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(cookie.Name)
		b.WriteByte('=')
		b.WriteString(cookie.Value)
	}

	return TokenFromCookieString(b.String(), c.csrfCookie)
}

func (c *Client) resolve(path string) *url.URL {
	ref := &url.URL{Path: path}
	if parsed, err := url.Parse(path); err == nil {
		ref = parsed
	}
	return c.baseURL.ResolveReference(ref)
}

func requestID(ctx context.Context) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
