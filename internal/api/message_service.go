package api

import (
	"context"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/feed"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	messageSendTextMethod     = "/sphinxd.v1.MessageService/SendText"
	messageListMessagesMethod = "/sphinxd.v1.MessageService/ListMessages"
)

// TextSender enqueues outgoing text messages for delivery.
type TextSender interface {
	Send(chatID int64, content string) (clientMsgID string, err error)
}

// MessageServiceServer is the server contract for message RPCs.
type MessageServiceServer interface {
	SendText(ctx context.Context, req *SendTextRequest) (*SendTextResponse, error)
	ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error)
}

// MessageService serves message history and accepts sends into the outbox.
type MessageService struct {
	db     *store.DB
	sender TextSender
}

// NewMessageService creates a message service over the store and outbox.
func NewMessageService(db *store.DB, sender TextSender) *MessageService {
	return &MessageService{db: db, sender: sender}
}

func (s *MessageService) SendText(_ context.Context, req *SendTextRequest) (*SendTextResponse, error) {
	if req.Text == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "empty message text")
	}
	if req.ChatID == 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "missing chat_id")
	}
	id, err := s.sender.Send(req.ChatID, req.Text)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "queue message: %v", err)
	}
	return &SendTextResponse{ClientMsgID: id}, nil
}

// ListMessages returns visible messages newest first, paginated by the
// before timestamp.
func (s *MessageService) ListMessages(_ context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var before time.Time
	if req.BeforeUnixMs > 0 {
		before = time.UnixMilli(req.BeforeUnixMs)
	}
	msgs, err := s.db.ListMessages(req.ChatID, before, limit, feed.HiddenTypes)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}
	return &ListMessagesResponse{Messages: msgs}, nil
}

// RegisterMessageServiceServer registers the message service with a gRPC
// server.
func RegisterMessageServiceServer(s grpc.ServiceRegistrar, srv MessageServiceServer) {
	s.RegisterService(&messageServiceDesc, srv)
}

func sendTextHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendTextRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MessageServiceServer).SendText(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: messageSendTextMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MessageServiceServer).SendText(ctx, req.(*SendTextRequest))
	})
}

func listMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MessageServiceServer).ListMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: messageListMessagesMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MessageServiceServer).ListMessages(ctx, req.(*ListMessagesRequest))
	})
}

var messageServiceDesc = grpc.ServiceDesc{
	ServiceName: "sphinxd.v1.MessageService",
	HandlerType: (*MessageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendText", Handler: sendTextHandler},
		{MethodName: "ListMessages", Handler: listMessagesHandler},
	},
	Streams: []grpc.StreamDesc{},
}
