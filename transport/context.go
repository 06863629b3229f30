package transport

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation ID to ctx. Every request carries an
// X-Request-ID header; when none is attached, a random UUID is generated per
// attempt.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the correlation ID attached to ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
