package middleware

import (
	"context"
	"encoding/json"
)

func contextWithJson(ctx context.Context, data json.RawMessage) context.Context {
	return context.WithValue(ctx, jsonContextKey, data)
}

// WithJsonBody is used by tests that call handlers without the middleware chain.
func WithJsonBody(ctx context.Context, data []byte) context.Context {
	return contextWithJson(ctx, json.RawMessage(data))
}
