// Package reqctx carries per-request client details through context.Context so that services
// can record them without depending on the HTTP layer.
package reqctx

import "context"

type contextKey struct{ name string }

var (
	requestIDKey = contextKey{"request_id"}
	clientIPKey  = contextKey{"client_ip"}
	userAgentKey = contextKey{"user_agent"}
	userIDKey    = contextKey{"user_id"}
	sessionIDKey = contextKey{"session_id"}
)

// WithClient returns a context with request id, client IP and user agent set.
func WithClient(ctx context.Context, requestID, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	ctx = context.WithValue(ctx, userAgentKey, userAgent)
	return ctx
}

// RequestID returns the request id from context and true if set; otherwise "", false.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok
}

// ClientIP returns the client IP from context and true if set; otherwise "", false.
func ClientIP(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(clientIPKey).(string)
	return v, ok && v != ""
}

// UserAgent returns the user agent from context and true if set; otherwise "", false.
func UserAgent(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userAgentKey).(string)
	return v, ok
}

// WithIdentity returns a context with the authenticated user_id and session_id set.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// UserID returns the authenticated user_id from context and true if set; otherwise "", false.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// SessionID returns the authenticated session_id from context and true if set; otherwise "", false.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}
