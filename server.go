package filterql

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/filterql/auth"
	"github.com/hugr-lab/filterql/filter"
	"github.com/hugr-lab/filterql/flight"
	"github.com/hugr-lab/filterql/internal/metrics"
	"github.com/hugr-lab/filterql/query"
)

// NewServer registers the filterql Flight service on grpcServer.
//
// The function:
//  1. Validates the ServerConfig
//  2. Registers query metrics when a Registerer is set
//  3. Creates the Flight service and registers it on grpcServer
//
// It does NOT start the gRPC server. Create grpcServer with ServerOptions
// so calls are authenticated:
//
//	grpcServer := grpc.NewServer(filterql.ServerOptions(config)...)
//	if err := filterql.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := serverLogger(config)

	queryOpts := []query.Option{
		query.WithMaxLimit(config.MaxPageSize),
		query.WithCompileOptions(filter.CompileOptions{
			MaxDepth: config.MaxFilterDepth,
			MaxNodes: config.MaxFilterNodes,
		}),
	}
	if config.Registerer != nil {
		collector, err := metrics.New(config.Registerer)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		queryOpts = append(queryOpts, query.WithMetrics(collector))
	}

	opts := []flight.Option{flight.WithQueryOptions(queryOpts...)}
	if config.BatchSize > 0 {
		opts = append(opts, flight.WithBatchSize(config.BatchSize))
	}

	flightServer := flight.NewServer(config.Schema, config.Store, allocator, logger, config.Address, opts...)
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("filterql Flight server registered",
		"entities", len(config.Schema.Entities()),
		"has_auth", config.Auth != nil,
		"max_page_size", config.MaxPageSize,
		"max_message_size", config.MaxMessageSize,
	)
	return nil
}

func validateConfig(config ServerConfig) error {
	if config.Schema == nil {
		return fmt.Errorf("schema is required")
	}
	if config.Store == nil {
		return fmt.Errorf("store is required")
	}
	if config.MaxFilterDepth < 0 || config.MaxFilterNodes < 0 {
		return fmt.Errorf("filter limits cannot be negative")
	}
	if config.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative")
	}
	return nil
}

func serverLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options carrying the metadata and
// authentication interceptors.
//
// Example:
//
//	config := filterql.ServerConfig{
//	    Schema: schema,
//	    Store:  store,
//	    Auth:   filterql.BearerAuth(validateToken),
//	}
//	grpcServer := grpc.NewServer(filterql.ServerOptions(config)...)
//	filterql.NewServer(grpcServer, config)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	unary := []grpc.UnaryServerInterceptor{flight.UnaryMetadataInterceptor()}
	stream := []grpc.StreamServerInterceptor{flight.StreamMetadataInterceptor()}
	if config.Auth != nil {
		unary = append(unary, auth.UnaryServerInterceptor(config.Auth))
		stream = append(stream, auth.StreamServerInterceptor(config.Auth))
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}
	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}
	return opts
}
