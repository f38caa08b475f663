package flight

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

type contextKey int

const metaKey contextKey = iota

// Metadata header keys read from incoming calls.
const (
	// HeaderTraceID carries a distributed trace identifier.
	HeaderTraceID = "filterql-trace-id"
	// HeaderSessionID carries a client session identifier.
	HeaderSessionID = "filterql-client-session-id"
)

// ContextMeta holds per-call metadata used for logging.
type ContextMeta struct {
	TraceID   string
	SessionID string
}

// WithContextMeta returns a new context carrying meta.
func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, metaKey, &meta)
}

// MetaFromContext returns the call metadata, or nil.
func MetaFromContext(ctx context.Context) *ContextMeta {
	meta, _ := ctx.Value(metaKey).(*ContextMeta)
	return meta
}

// TraceIDFromContext returns the trace ID from context, or "".
func TraceIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.TraceID
	}
	return ""
}

// SessionIDFromContext returns the session ID from context, or "".
func SessionIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.SessionID
	}
	return ""
}

// EnrichContextMetadata copies trace and session headers from incoming
// metadata into the context. Calls without a trace header get a fresh one.
// An already enriched context is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}

	var meta ContextMeta
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(HeaderTraceID); len(values) > 0 {
			meta.TraceID = values[0]
		}
		if values := md.Get(HeaderSessionID); len(values) > 0 {
			meta.SessionID = values[0]
		}
	}
	if meta.TraceID == "" {
		meta.TraceID = uuid.NewString()
	}
	return WithContextMeta(ctx, meta)
}
