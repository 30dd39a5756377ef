package grpcservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is described by hand on top of the protobuf well-known types,
// so no generated code is needed on either side.
//
//	service ShareService {
//	  rpc GetInitialMedia(google.protobuf.Empty) returns (google.protobuf.Value);
//	  rpc GetInitialText(google.protobuf.Empty) returns (google.protobuf.Value);
//	  rpc Reset(google.protobuf.Empty) returns (google.protobuf.Empty);
//	  rpc Share(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Status(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc Watch(google.protobuf.StringValue) returns (stream google.protobuf.ListValue);
//	}
const (
	ServiceName = "sharecast.v1.ShareService"

	GetInitialMediaMethod = "/" + ServiceName + "/GetInitialMedia"
	GetInitialTextMethod  = "/" + ServiceName + "/GetInitialText"
	ResetMethod           = "/" + ServiceName + "/Reset"
	ShareMethod           = "/" + ServiceName + "/Share"
	StatusMethod          = "/" + ServiceName + "/Status"
	WatchMethod           = "/" + ServiceName + "/Watch"
)

// ShareServiceServer is the server API for ShareService.
type ShareServiceServer interface {
	GetInitialMedia(context.Context, *emptypb.Empty) (*structpb.Value, error)
	GetInitialText(context.Context, *emptypb.Empty) (*structpb.Value, error)
	Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Share(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Watch(*wrapperspb.StringValue, grpc.ServerStreamingServer[structpb.ListValue]) error
}

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv ShareServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(ShareServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ShareServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ShareServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	m := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ShareServiceServer).Watch(m, &grpc.GenericServerStream[wrapperspb.StringValue, structpb.ListValue]{ServerStream: stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShareServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetInitialMedia",
			Handler:    unaryHandler(GetInitialMediaMethod, ShareServiceServer.GetInitialMedia),
		},
		{
			MethodName: "GetInitialText",
			Handler:    unaryHandler(GetInitialTextMethod, ShareServiceServer.GetInitialText),
		},
		{
			MethodName: "Reset",
			Handler:    unaryHandler(ResetMethod, ShareServiceServer.Reset),
		},
		{
			MethodName: "Share",
			Handler:    unaryHandler(ShareMethod, ShareServiceServer.Share),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(StatusMethod, ShareServiceServer.Status),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sharecast/v1/share.proto",
}
