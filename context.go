package apolloAuth

import "context"

type correlationIDContextKey struct{}

// WithCorrelationID attaches a request correlation ID to ctx. The HTTP
// credential exchange sends it as X-Correlation-ID and session events
// record it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, id)
}

// CorrelationIDFromContext returns the ID set by [WithCorrelationID], or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDContextKey{}).(string)
	return id
}
