package util

import (
	"context"
	"time"
)

const (
	CONTEXT_TIMEOUT = 5 * time.Second
	// Calls to the image model API get longer than store calls.
	REMOTE_CONTEXT_TIMEOUT = 30 * time.Second
)

func GetContextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, CONTEXT_TIMEOUT)
}

func GetRemoteContextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, REMOTE_CONTEXT_TIMEOUT)
}
