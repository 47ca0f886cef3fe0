package helpers

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores the request id so layers below the HTTP handler can
// log it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
