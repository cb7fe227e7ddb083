package api

import (
	"context"

	"github.com/sphinx-chat/sphinxd/internal/status"
	"google.golang.org/grpc"
)

const sessionGetStatusMethod = "/sphinxd.v1.SessionService/GetStatus"

// SessionServiceServer is the server contract for session RPCs.
type SessionServiceServer interface {
	GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error)
}

// SessionService reports the daemon's account and runtime state.
type SessionService struct {
	account string
	machine *status.Machine
}

// NewSessionService creates a session service over the state machine.
func NewSessionService(account string, machine *status.Machine) *SessionService {
	return &SessionService{account: account, machine: machine}
}

func (s *SessionService) GetStatus(_ context.Context, _ *GetStatusRequest) (*GetStatusResponse, error) {
	return &GetStatusResponse{
		Account: s.account,
		Status:  string(s.machine.Current()),
	}, nil
}

// RegisterSessionServiceServer registers the session service with a gRPC
// server.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&sessionServiceDesc, srv)
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sessionGetStatusMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).GetStatus(ctx, req.(*GetStatusRequest))
	})
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: "sphinxd.v1.SessionService",
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams: []grpc.StreamDesc{},
}
