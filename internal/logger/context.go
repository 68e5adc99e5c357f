package logger

import "context"

type ridKey struct{}

// WithRequestID stores the request id so the slog handler can attach it to
// every record emitted while serving the request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ridKey{}, id)
}

// RequestID returns the stored request id, or "" outside of a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ridKey{}).(string)
	return id
}
