package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/filterql/query"
)

// queryStatus maps a query failure to a gRPC status.
// Store failures keep their detail out of the response.
func queryStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case query.IsCallerFault(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, query.ErrOwnerRequired):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, query.ErrStore):
		return status.Error(codes.Internal, "query execution failed")
	default:
		return status.Errorf(codes.Internal, "query failed: %v", err)
	}
}
