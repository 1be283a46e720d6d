package grpcx

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/portfolio-site/meetbook/libs/httpx"
)

// RequestIDMetadataKey carries the request id in gRPC metadata (lowercase per gRPC convention).
const RequestIDMetadataKey = "x-request-id"

// RequestIDFromContext returns the id stored by either the HTTP middleware or the
// server interceptor; both use the same context key.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return httpx.ContextWithRequestID(ctx, id)
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 && httpx.ValidRequestID(vals[0]) {
		return vals[0]
	}
	return ""
}
