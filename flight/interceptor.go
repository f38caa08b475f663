package flight

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryMetadataInterceptor creates a gRPC unary interceptor that attaches
// ContextMeta (trace id and session id) to the call context.
// It must run before the auth interceptors so rejected calls are traced too.
func UnaryMetadataInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(EnrichContextMetadata(ctx), req)
	}
}

// StreamMetadataInterceptor creates a gRPC stream interceptor that attaches
// ContextMeta to the stream context.
func StreamMetadataInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          EnrichContextMetadata(ss.Context()),
		})
	}
}

// wrappedServerStream wraps grpc.ServerStream to override Context()
// with the enriched one.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapper's custom context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
