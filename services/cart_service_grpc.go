// cartservice/services/cart_service_grpc.go

package services

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The cart API is carried on protobuf well-known types, so the service
// descriptor is declared here instead of generated.

const CartServiceName = "gomarketplace.cart.v1.CartService"

const (
	CartService_GetCart_FullMethodName   = "/" + CartServiceName + "/GetCart"
	CartService_AddToCart_FullMethodName = "/" + CartServiceName + "/AddToCart"
	CartService_Increment_FullMethodName = "/" + CartServiceName + "/Increment"
	CartService_Decrement_FullMethodName = "/" + CartServiceName + "/Decrement"
	CartService_Watch_FullMethodName     = "/" + CartServiceName + "/Watch"
)

// CartServer is the server API for the cart service.
type CartServer interface {
	GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddToCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Increment(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Decrement(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Watch(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterCartServer registers srv on s.
func RegisterCartServer(s grpc.ServiceRegistrar, srv CartServer) {
	s.RegisterService(&CartService_ServiceDesc, srv)
}

func unaryHandler[Req, Res any](fullMethod string, call func(CartServer, context.Context, *Req) (*Res, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CartServer).Watch(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// CartService_ServiceDesc is the grpc.ServiceDesc for the cart service.
var CartService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetCart",
			Handler:    unaryHandler(CartService_GetCart_FullMethodName, CartServer.GetCart),
		},
		{
			MethodName: "AddToCart",
			Handler:    unaryHandler(CartService_AddToCart_FullMethodName, CartServer.AddToCart),
		},
		{
			MethodName: "Increment",
			Handler:    unaryHandler(CartService_Increment_FullMethodName, CartServer.Increment),
		},
		{
			MethodName: "Decrement",
			Handler:    unaryHandler(CartService_Decrement_FullMethodName, CartServer.Decrement),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "gomarketplace/cart/v1/cart.proto",
}

// CartClient is the client API for the cart service.
type CartClient struct {
	cc grpc.ClientConnInterface
}

// NewCartClient wraps cc.
func NewCartClient(cc grpc.ClientConnInterface) *CartClient {
	return &CartClient{cc: cc}
}

func (c *CartClient) GetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CartService_GetCart_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartClient) AddToCart(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CartService_AddToCart_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartClient) Increment(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CartService_Increment_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartClient) Decrement(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CartService_Decrement_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartClient) Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &CartService_ServiceDesc.Streams[0], CartService_Watch_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
