package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/filterql/catalog"
)

// GetFlightInfo returns the Arrow schema of an entity and a ticket that
// selects every row the caller may see.
//
// The descriptor must be of PATH type with exactly one element, the
// entity name. Clients add their query document to the ticket with
// EncodeTicket.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	if desc.GetType() != flight.DescriptorPATH {
		return nil, status.Error(codes.InvalidArgument, "descriptor must be PATH type")
	}
	path := desc.GetPath()
	if len(path) != 1 {
		return nil, status.Error(codes.InvalidArgument, "path must contain exactly 1 element: [entity_name]")
	}

	entity, ok := s.schema.Entity(path[0])
	if !ok {
		return nil, status.Errorf(codes.NotFound, "entity not found: %s", path[0])
	}

	info, err := s.flightInfo(entity)
	if err != nil {
		s.logger.Error("Failed to build flight info", "entity", entity.Name(), "error", err)
		return nil, status.Errorf(codes.Internal, "failed to build flight info: %v", err)
	}
	return info, nil
}

func (s *Server) flightInfo(entity *catalog.Entity) (*flight.FlightInfo, error) {
	ticket, err := EncodeTicket(entity.Name(), nil)
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema: flight.SerializeSchema(entity.ArrowSchema(), s.allocator),
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{entity.Name()},
		},
		Endpoint: []*flight.FlightEndpoint{{
			Ticket:   &flight.Ticket{Ticket: ticket},
			Location: s.location(),
		}},
		TotalRecords: -1,
		TotalBytes:   -1,
	}, nil
}
