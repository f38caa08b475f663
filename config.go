package filterql

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hugr-lab/filterql/auth"
	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/query"
)

// ServerConfig contains configuration for the filterql Flight server.
type ServerConfig struct {
	// Schema lists the queryable entities.
	// REQUIRED: MUST NOT be nil.
	Schema catalog.Schema

	// Store runs lowered queries.
	// REQUIRED: MUST NOT be nil.
	Store query.Store

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication. Owner-scoped entities then
	// reject every query because no caller identity is known.
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If Logger is also provided, LogLevel is ignored.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string

	// MaxPageSize caps the rows returned by one query.
	// OPTIONAL: 0 means no cap.
	MaxPageSize uint64

	// MaxFilterDepth and MaxFilterNodes bound client filter trees.
	// OPTIONAL: 0 uses the filter package defaults.
	MaxFilterDepth int
	MaxFilterNodes int

	// BatchSize is the maximum rows per streamed record batch.
	// OPTIONAL: 0 uses 1024.
	BatchSize int

	// Registerer receives the query metrics.
	// OPTIONAL: If nil, no metrics are recorded.
	Registerer prometheus.Registerer
}

// Standard errors returned by the filterql package.
var (
	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = auth.ErrUnauthenticated

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)
