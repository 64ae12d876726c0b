package logtrace

import (
	"context"
)

type requestIDKey struct{}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIDKey{}).(string)
	if !ok {
		return ""
	}
	return r
}

// IsTraceEnabled reports whether route tracing was requested through
// VAULT_TRACE_ROUTES.
func IsTraceEnabled() bool {
	return traceRoutes
}

var traceRoutes bool

// EnableTrace switches route tracing on or off.
func EnableTrace(on bool) {
	traceRoutes = on
}
