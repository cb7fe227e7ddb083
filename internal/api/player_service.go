package api

import (
	"context"

	"github.com/sphinx-chat/sphinxd/internal/player"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	playerSubmitActionMethod = "/sphinxd.v1.PlayerService/SubmitAction"
	playerGetStateMethod     = "/sphinxd.v1.PlayerService/GetState"
	playerBoostMethod        = "/sphinxd.v1.PlayerService/Boost"
)

var actionKinds = map[string]player.ActionKind{
	"preload":      player.ActionPreload,
	"play":         player.ActionPlay,
	"pause":        player.ActionPause,
	"seek":         player.ActionSeek,
	"adjust_speed": player.ActionAdjustSpeed,
}

// PlayerServiceServer is the server contract for playback RPCs.
type PlayerServiceServer interface {
	SubmitAction(ctx context.Context, req *SubmitActionRequest) (*SubmitActionResponse, error)
	GetState(ctx context.Context, req *PlayerStateRequest) (*PlayerStateResponse, error)
	Boost(ctx context.Context, req *BoostRequest) (*BoostResponse, error)
}

// PlayerService funnels playback requests into the controller.
type PlayerService struct {
	controller *player.Controller
	payments   *player.PaymentsHelper
}

// NewPlayerService creates a player service. payments may be nil when sats
// streaming is unavailable.
func NewPlayerService(controller *player.Controller, payments *player.PaymentsHelper) *PlayerService {
	return &PlayerService{controller: controller, payments: payments}
}

func (s *PlayerService) SubmitAction(_ context.Context, req *SubmitActionRequest) (*SubmitActionResponse, error) {
	kind, ok := actionKinds[req.Kind]
	if !ok {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "unknown action kind %q", req.Kind)
	}
	s.controller.Submit(player.Action{Kind: kind, Data: req.Session})
	return &SubmitActionResponse{}, nil
}

func (s *PlayerService) GetState(_ context.Context, _ *PlayerStateRequest) (*PlayerStateResponse, error) {
	resp := &PlayerStateResponse{State: s.controller.State().String()}
	if data, ok := s.controller.Data(); ok {
		resp.Session = &data
	}
	return resp, nil
}

// Boost sends a one-off appreciation payment for the playing clip.
func (s *PlayerService) Boost(_ context.Context, req *BoostRequest) (*BoostResponse, error) {
	if s.payments == nil {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "payments unavailable")
	}
	if req.Amount <= 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "boost amount must be positive")
	}
	s.payments.Boost(req.Session, req.Amount, req.UUID)
	return &BoostResponse{}, nil
}

// RegisterPlayerServiceServer registers the player service with a gRPC
// server.
func RegisterPlayerServiceServer(s grpc.ServiceRegistrar, srv PlayerServiceServer) {
	s.RegisterService(&playerServiceDesc, srv)
}

func submitActionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlayerServiceServer).SubmitAction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: playerSubmitActionMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PlayerServiceServer).SubmitAction(ctx, req.(*SubmitActionRequest))
	})
}

func getStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PlayerStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlayerServiceServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: playerGetStateMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PlayerServiceServer).GetState(ctx, req.(*PlayerStateRequest))
	})
}

func boostHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BoostRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlayerServiceServer).Boost(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: playerBoostMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PlayerServiceServer).Boost(ctx, req.(*BoostRequest))
	})
}

var playerServiceDesc = grpc.ServiceDesc{
	ServiceName: "sphinxd.v1.PlayerService",
	HandlerType: (*PlayerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitAction", Handler: submitActionHandler},
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "Boost", Handler: boostHandler},
	},
	Streams: []grpc.StreamDesc{},
}
