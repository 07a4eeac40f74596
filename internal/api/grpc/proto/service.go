// Package proto describes the onboarding.v1 gRPC services. Messages are
// google.protobuf.Struct values so clients need no generated stubs.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	OnboardingServiceName = "onboarding.v1.Onboarding"
	AccountServiceName    = "onboarding.v1.Account"
)

// Onboarding method names.
const (
	MethodBegin            = "Begin"
	MethodConfirmChallenge = "ConfirmChallenge"
	MethodComplete         = "Complete"
	MethodCancel           = "Cancel"
	MethodGetSession       = "GetSession"
)

// Account method names.
const (
	MethodGetProfile            = "GetProfile"
	MethodUpdateProfile         = "UpdateProfile"
	MethodCreateScheduleRequest = "CreateScheduleRequest"
	MethodListScheduleRequests  = "ListScheduleRequests"
	MethodRefreshToken          = "RefreshToken"
	MethodRevokeToken           = "RevokeToken"
	MethodSignOut               = "SignOut"
)

// FullMethod returns the "/service/method" path used on the wire.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

type OnboardingServer interface {
	Begin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Complete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type AccountServer interface {
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateScheduleRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListScheduleRequests(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RevokeToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unary[S any](service, method string, fn func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(service, method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var OnboardingServiceDesc = grpc.ServiceDesc{
	ServiceName: OnboardingServiceName,
	HandlerType: (*OnboardingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OnboardingServiceName, MethodBegin, OnboardingServer.Begin),
		unary(OnboardingServiceName, MethodConfirmChallenge, OnboardingServer.ConfirmChallenge),
		unary(OnboardingServiceName, MethodComplete, OnboardingServer.Complete),
		unary(OnboardingServiceName, MethodCancel, OnboardingServer.Cancel),
		unary(OnboardingServiceName, MethodGetSession, OnboardingServer.GetSession),
	},
	Metadata: "onboarding/v1/onboarding.proto",
}

var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountServiceName,
	HandlerType: (*AccountServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AccountServiceName, MethodGetProfile, AccountServer.GetProfile),
		unary(AccountServiceName, MethodUpdateProfile, AccountServer.UpdateProfile),
		unary(AccountServiceName, MethodCreateScheduleRequest, AccountServer.CreateScheduleRequest),
		unary(AccountServiceName, MethodListScheduleRequests, AccountServer.ListScheduleRequests),
		unary(AccountServiceName, MethodRefreshToken, AccountServer.RefreshToken),
		unary(AccountServiceName, MethodRevokeToken, AccountServer.RevokeToken),
		unary(AccountServiceName, MethodSignOut, AccountServer.SignOut),
	},
	Metadata: "onboarding/v1/account.proto",
}

func RegisterOnboardingServer(s grpc.ServiceRegistrar, srv OnboardingServer) {
	s.RegisterService(&OnboardingServiceDesc, srv)
}

func RegisterAccountServer(s grpc.ServiceRegistrar, srv AccountServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

// Client invokes methods of one service over a connection.
type Client struct {
	cc      grpc.ClientConnInterface
	service string
}

func NewOnboardingClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, service: OnboardingServiceName}
}

func NewAccountClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, service: AccountServiceName}
}

// Call sends in to method and returns the decoded response.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(c.service, method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
