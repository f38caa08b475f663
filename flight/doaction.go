package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/internal/msgpack"
	"github.com/hugr-lab/filterql/internal/serialize"
)

// ActionDescribeEntities returns entity descriptors, MessagePack encoded
// and ZStandard compressed.
const ActionDescribeEntities = "describe_entities"

var actionTypes = []*flight.ActionType{
	{
		Type:        ActionDescribeEntities,
		Description: "Describe queryable entities and their filterable fields",
	},
}

// DoAction executes server actions.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	s.logger.Debug("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
		"trace_id", TraceIDFromContext(EnrichContextMetadata(stream.Context())),
	)

	switch action.GetType() {
	case ActionDescribeEntities:
		return s.describeEntities(action, stream)
	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
}

// ListActions lists the supported action types.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, at := range actionTypes {
		if err := stream.Send(at); err != nil {
			return err
		}
	}
	return nil
}

// describeEntities handles describe_entities.
//
// Request format (MessagePack, optional):
//
//	{"entities": ["comment", "charity"]}
//
// An empty body describes every entity.
func (s *Server) describeEntities(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var params struct {
		Entities []string `msgpack:"entities"`
	}
	if len(action.GetBody()) > 0 {
		if err := msgpack.Decode(action.GetBody(), &params); err != nil {
			return status.Errorf(codes.InvalidArgument, "invalid describe_entities parameters: %v", err)
		}
	}

	entities := s.schema.Entities()
	if len(params.Entities) > 0 {
		entities = make([]*catalog.Entity, 0, len(params.Entities))
		for _, name := range params.Entities {
			e, ok := s.schema.Entity(name)
			if !ok {
				return status.Errorf(codes.NotFound, "entity not found: %s", name)
			}
			entities = append(entities, e)
		}
	}

	body, err := serialize.EncodeDescriptors(serialize.Describe(entities))
	if err != nil {
		s.logger.Error("Failed to encode entity descriptors", "error", err)
		return status.Errorf(codes.Internal, "failed to encode entity descriptors: %v", err)
	}
	return stream.Send(&flight.Result{Body: body})
}
