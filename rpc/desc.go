// Package rpc exposes the guardian engine as the gRPC service
// guardian.v1.Guardian. Messages are google.protobuf.Struct values carrying
// the same JSON shapes the engine's types marshal to.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "guardian.v1.Guardian"

// GuardianServer is the server API for the Guardian service
type GuardianServer interface {
	RecordActivity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordOutcome(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyOutcome(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Leaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Standing(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetLeaderboardVisibility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveRank(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(GuardianServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(name string, m unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(GuardianServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + name,
		}
		h := func(ctx context.Context, req any) (any, error) {
			return m(srv.(GuardianServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, h)
	}
}

// ServiceDesc describes guardian.v1.Guardian for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GuardianServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordActivity", Handler: handler("RecordActivity", GuardianServer.RecordActivity)},
		{MethodName: "RecordOutcome", Handler: handler("RecordOutcome", GuardianServer.RecordOutcome)},
		{MethodName: "VerifyOutcome", Handler: handler("VerifyOutcome", GuardianServer.VerifyOutcome)},
		{MethodName: "Leaderboard", Handler: handler("Leaderboard", GuardianServer.Leaderboard)},
		{MethodName: "Standing", Handler: handler("Standing", GuardianServer.Standing)},
		{MethodName: "Profile", Handler: handler("Profile", GuardianServer.Profile)},
		{MethodName: "SetLeaderboardVisibility", Handler: handler("SetLeaderboardVisibility", GuardianServer.SetLeaderboardVisibility)},
		{MethodName: "Score", Handler: handler("Score", GuardianServer.Score)},
		{MethodName: "ResolveRank", Handler: handler("ResolveRank", GuardianServer.ResolveRank)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "guardian/v1/guardian.proto",
}

// Register adds the Guardian service to a gRPC server
func Register(s grpc.ServiceRegistrar, srv GuardianServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls guardian.v1.Guardian over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a unary method by its short name, e.g. "Leaderboard"
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
