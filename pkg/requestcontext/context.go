// Package requestcontext carries caller-scoped values that are not part of an
// operation's arguments.
//
// Usage in callers (set values):
//
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in services (read values):
//
//	requestID := requestcontext.RequestID(ctx)
package requestcontext

import "context"

type requestIDKey struct{}

// ContextKeyRequestID is exported for tests that need context.WithValue.
var ContextKeyRequestID = requestIDKey{}

// RequestID retrieves the correlation id from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
