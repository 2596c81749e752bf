package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	RequestID   string // HTTP request id
	OperationID string // Write operation id
	TraceID     string // OpenTelemetry trace ID
	ClientIP    string // Client IP address
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return &LogContext{}
	}
	c := *lc
	return &c
}

// WithOperation returns ctx carrying a copy of its LogContext with the
// operation and trace ids set.
func WithOperation(ctx context.Context, operationID, traceID string) context.Context {
	lc := FromContext(ctx).Clone()
	lc.OperationID = operationID
	if traceID != "" {
		lc.TraceID = traceID
	}
	return WithContext(ctx, lc)
}
