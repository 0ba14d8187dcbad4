package grpcx

import (
	"context"

	"github.com/md-rashed-zaman/slotbooker/libs/httpx"
)

// RequestIDMetadataKey carries the request id over gRPC metadata (keys are lowercase).
const RequestIDMetadataKey = "x-request-id"

// The id shares its context key with httpx so HTTP and gRPC entry points agree.

func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return httpx.ContextWithRequestID(ctx, id)
}

func NewRequestID() string {
	return httpx.NewRequestID()
}
