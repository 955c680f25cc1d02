package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service dashboard.DashboardControl, registered by hand on the protobuf
// well-known types so no generated code is needed:
//
//	rpc GetStatus(google.protobuf.Empty) returns (google.protobuf.Struct);
//	rpc RefreshNow(google.protobuf.Empty) returns (google.protobuf.Struct);
const (
	ServiceName          = "dashboard.DashboardControl"
	GetStatusFullMethod  = "/" + ServiceName + "/GetStatus"
	RefreshNowFullMethod = "/" + ServiceName + "/RefreshNow"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type DashboardControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RefreshNow(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedDashboardControlServer can be embedded for forward compatibility.
type UnimplementedDashboardControlServer struct{}

func (UnimplementedDashboardControlServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

func (UnimplementedDashboardControlServer) RefreshNow(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshNow not implemented")
}

// -----------------------------------------------------------------------------

func RegisterDashboardControlServer(s grpc.ServiceRegistrar, srv DashboardControlServer) {
	s.RegisterService(&DashboardControl_ServiceDesc, srv)
}

var DashboardControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DashboardControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "RefreshNow", Handler: refreshNowHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// -----------------------------------------------------------------------------

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatusFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DashboardControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func refreshNowHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardControlServer).RefreshNow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RefreshNowFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DashboardControlServer).RefreshNow(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type DashboardControlClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshNow(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type dashboardControlClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardControlClient(cc grpc.ClientConnInterface) DashboardControlClient {
	return &dashboardControlClient{cc}
}

func (c *dashboardControlClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dashboardControlClient) RefreshNow(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RefreshNowFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
