package ledger

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/payment-settlement/internal/event"
)

// Balance lookups over gRPC, using well-known wrapper types as messages:
//
//	service ledger.v1.Ledger { rpc GetBalance(google.protobuf.StringValue) returns (google.protobuf.DoubleValue); }
const (
	GRPCServiceName      = "ledger.v1.Ledger"
	getBalanceFullMethod = "/ledger.v1.Ledger/GetBalance"
)

type BalanceServer interface {
	GetBalance(context.Context, *wrapperspb.StringValue) (*wrapperspb.DoubleValue, error)
}

var balanceServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*BalanceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: getBalanceHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

func getBalanceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BalanceServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getBalanceFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BalanceServer).GetBalance(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCServer struct {
	svc *Service
}

func RegisterGRPC(s grpc.ServiceRegistrar, svc *Service) {
	s.RegisterService(&balanceServiceDesc, &GRPCServer{svc: svc})
}

func (g *GRPCServer) GetBalance(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.DoubleValue, error) {
	userID := in.GetValue()
	if !event.ValidIdentifier(userID) {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	return wrapperspb.Double(g.svc.Balance(userID)), nil
}

// BalanceClient calls the ledger gRPC service.
type BalanceClient struct {
	cc grpc.ClientConnInterface
}

func NewBalanceClient(cc grpc.ClientConnInterface) *BalanceClient {
	return &BalanceClient{cc: cc}
}

func (c *BalanceClient) GetBalance(ctx context.Context, userID string, opts ...grpc.CallOption) (float64, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, getBalanceFullMethod, wrapperspb.String(userID), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
