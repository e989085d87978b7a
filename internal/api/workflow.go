package api

import (
	"context"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"workmarket/internal/domain"
	"workmarket/internal/models"
)

const (
	workflowServiceName = "workmarket.v1.Workflow"

	workflowMethodChangeBookingStatus = "/" + workflowServiceName + "/ChangeBookingStatus"
	workflowMethodChangeGigStatus     = "/" + workflowServiceName + "/ChangeGigStatus"
	workflowMethodAcceptBid           = "/" + workflowServiceName + "/AcceptBid"
)

// WorkflowServer carries the state-changing workflow calls over gRPC.
// Requests and responses are google.protobuf.Struct documents.
type WorkflowServer interface {
	ChangeBookingStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeGigStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcceptBid(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var workflowServiceDesc = grpc.ServiceDesc{
	ServiceName: workflowServiceName,
	HandlerType: (*WorkflowServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ChangeBookingStatus", Handler: workflowHandler(workflowMethodChangeBookingStatus, WorkflowServer.ChangeBookingStatus)},
		{MethodName: "ChangeGigStatus", Handler: workflowHandler(workflowMethodChangeGigStatus, WorkflowServer.ChangeGigStatus)},
		{MethodName: "AcceptBid", Handler: workflowHandler(workflowMethodAcceptBid, WorkflowServer.AcceptBid)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "workmarket/v1/workflow.proto",
}

func RegisterWorkflowServer(s grpc.ServiceRegistrar, srv WorkflowServer) {
	s.RegisterService(&workflowServiceDesc, srv)
}

func workflowHandler(fullMethod string, call func(WorkflowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WorkflowServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WorkflowServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// WorkflowService adapts the booking and gig services to WorkflowServer.
type WorkflowService struct {
	bookings domain.BookingService
	gigs     domain.GigService
}

func NewWorkflowService(bookings domain.BookingService, gigs domain.GigService) *WorkflowService {
	return &WorkflowService{bookings: bookings, gigs: gigs}
}

func (s *WorkflowService) ChangeBookingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "booking_id", true)
	if err != nil {
		return nil, err
	}
	to, err := models.ParseBookingStatus(stringField(req, "status"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	version, err := intField(req, "version", false)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.ChangeStatus(ctx, id, to, version)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{
		"ok":         true,
		"booking_id": booking.ID,
		"status":     string(booking.Status),
		"version":    booking.Version,
	})
}

func (s *WorkflowService) ChangeGigStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "gig_id", true)
	if err != nil {
		return nil, err
	}
	to, err := models.ParseGigStatus(stringField(req, "status"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	gig, err := s.gigs.ChangeStatus(ctx, id, to)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{
		"ok":     true,
		"gig_id": gig.ID,
		"status": string(gig.Status),
	})
}

func (s *WorkflowService) AcceptBid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gigID, err := intField(req, "gig_id", true)
	if err != nil {
		return nil, err
	}
	bidID, err := intField(req, "bid_id", true)
	if err != nil {
		return nil, err
	}

	acc, err := s.gigs.AcceptBid(ctx, gigID, bidID)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{
		"ok":              true,
		"gig_id":          acc.GigID,
		"bid_id":          acc.Bid.ID,
		"worker_id":       acc.Bid.WorkerID,
		"amount":          acc.Bid.Amount.String(),
		"previous_status": string(acc.PreviousStatus),
	})
}

// intField reads a whole number from a Struct; JSON numbers arrive as float64.
func intField(s *structpb.Struct, name string, required bool) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		if required {
			return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
		}
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	if required && n.NumberValue == 0 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be > 0", name)
	}
	return int64(n.NumberValue), nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

var _ WorkflowServer = (*WorkflowService)(nil)
