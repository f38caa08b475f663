// Package flight serves filtered entity queries over Arrow Flight.
//
// A client fetches an entity by calling DoGet with a ticket naming the
// entity and carrying the query document. Results stream back as Arrow
// record batches laid out by the entity schema. For owner-scoped entities
// the caller identity set by the auth interceptors restricts every query.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/internal/arrowconv"
	"github.com/hugr-lab/filterql/query"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer so unimplemented RPCs return Unimplemented.
type Server struct {
	flight.BaseFlightServer

	schema    catalog.Schema
	store     query.Store
	allocator memory.Allocator
	logger    *slog.Logger
	address   string // public address for FlightEndpoint locations
	batchSize int
	queryOpts []query.Option
}

// Option configures a Server.
type Option func(*Server)

// WithQueryOptions passes options to every query executor.
func WithQueryOptions(opts ...query.Option) Option {
	return func(s *Server) { s.queryOpts = append(s.queryOpts, opts...) }
}

// WithBatchSize sets the maximum rows per streamed record batch.
func WithBatchSize(n int) Option {
	return func(s *Server) { s.batchSize = n }
}

// NewServer creates a Flight server over schema and store.
func NewServer(schema catalog.Schema, store query.Store, allocator memory.Allocator, logger *slog.Logger, address string, opts ...Option) *Server {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		schema:    schema,
		store:     store,
		allocator: allocator,
		logger:    logger,
		address:   address,
		batchSize: arrowconv.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterFlightServer registers the Flight service on the gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}

func (s *Server) location() []*flight.Location {
	if s.address == "" {
		return nil
	}
	return []*flight.Location{{Uri: "grpc://" + s.address}}
}
