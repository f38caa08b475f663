package flight

import (
	"context"
	"log/slog"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/filterql/auth"
	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/internal/arrowconv"
	"github.com/hugr-lab/filterql/query"
)

// DoGet runs the query carried by the ticket and streams the matching rows
// as Arrow record batches.
//
// The handler:
//  1. Decodes the ticket to get the entity name and query document
//  2. Looks up the entity in the schema
//  3. Scopes owner-scoped entities to the caller identity
//  4. Executes the query against the store
//  5. Streams the result using Arrow IPC with the entity schema
//
// An empty result still sends the schema.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	td, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		s.logger.Debug("Failed to decode ticket", "error", err)
		return status.Error(codes.InvalidArgument, err.Error())
	}

	logger := s.logger.With("entity", td.Entity, "trace_id", TraceIDFromContext(ctx))

	entity, ok := s.schema.Entity(td.Entity)
	if !ok {
		return status.Errorf(codes.NotFound, "entity not found: %s", td.Entity)
	}

	req, err := query.DecodeRequest(td.Query)
	if err != nil {
		return queryStatus(err)
	}

	scope, err := callerScope(ctx, entity)
	if err != nil {
		return err
	}

	exec := query.NewExecutor(s.store, entity, query.RecordDecoder, s.executorOptions(logger)...)
	res, err := query.Execute(ctx, exec, req, scope)
	if err != nil {
		logger.Debug("Query failed", "error", err)
		return queryStatus(err)
	}

	batches, err := arrowconv.Batches(s.allocator, entity, res.Items, s.batchSize)
	if err != nil {
		logger.Error("Failed to convert result", "error", err)
		return status.Errorf(codes.Internal, "failed to convert result: %v", err)
	}
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()

	writer := flight.NewRecordWriter(stream,
		ipc.WithSchema(entity.ArrowSchema()),
		ipc.WithAllocator(s.allocator),
	)
	defer writer.Close()

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			logger.Debug("DoGet cancelled by client", "batches_sent", i)
			return status.Error(codes.Canceled, "request cancelled")
		}
		if err := writer.Write(batch); err != nil {
			logger.Error("Failed to write record batch", "batch", i, "error", err)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", i, err)
		}
	}

	logger.Debug("DoGet completed", "batches", len(batches), "rows", res.Len())
	return nil
}

// callerScope restricts owner-scoped entities to the authenticated caller.
func callerScope(ctx context.Context, entity *catalog.Entity) (query.Predicate, error) {
	if entity.OwnerField() == "" {
		return query.Public(), nil
	}
	identity := auth.IdentityFromContext(ctx)
	if identity == "" {
		return nil, status.Errorf(codes.Unauthenticated, "entity %s requires an authenticated caller", entity.Name())
	}
	return query.OwnedBy(identity), nil
}

func (s *Server) executorOptions(logger *slog.Logger) []query.Option {
	return append(slices.Clone(s.queryOpts), query.WithLogger(logger))
}
