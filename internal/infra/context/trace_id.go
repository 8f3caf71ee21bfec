package context

import (
	"context"

	"github.com/google/uuid"
)

const contextKeyTraceID = contextKey("traceID")

// TraceIDFromContext extracts the trace ID from the context.
// Returns the trace ID and true if present, or empty string and false if not present.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(contextKeyTraceID).(string)

	return traceID, ok
}

// WithTraceID creates a new context with the given trace ID value.
// This context can be used to track a request through different systems.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKeyTraceID, traceID)
}

// NewTraceID returns a time-ordered UUIDv7 string, or a random UUIDv4 if the
// clock sequence cannot be read.
func NewTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// EnsureTraceID returns ctx unchanged if it already carries a trace ID,
// otherwise a copy carrying a new one.
func EnsureTraceID(ctx context.Context) context.Context {
	if _, ok := TraceIDFromContext(ctx); ok {
		return ctx
	}

	return WithTraceID(ctx, NewTraceID())
}
