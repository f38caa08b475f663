package flight

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListFlights sends one FlightInfo per entity, ordered by name.
// A non-empty criteria expression keeps only entities whose name starts
// with it.
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	prefix := string(criteria.GetExpression())

	sent := 0
	for _, entity := range s.schema.Entities() {
		if !strings.HasPrefix(entity.Name(), prefix) {
			continue
		}
		info, err := s.flightInfo(entity)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to build flight info: %v", err)
		}
		if err := stream.Send(info); err != nil {
			s.logger.Error("Failed to send FlightInfo", "entity", entity.Name(), "error", err)
			return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
		}
		sent++
	}

	s.logger.Debug("ListFlights completed", "entities", sent)
	return nil
}
