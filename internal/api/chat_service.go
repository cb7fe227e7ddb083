package api

import (
	"context"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/feed"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	chatListChatsMethod    = "/sphinxd.v1.ChatService/ListChats"
	chatOpenChatMethod     = "/sphinxd.v1.ChatService/OpenChat"
	chatCloseChatMethod    = "/sphinxd.v1.ChatService/CloseChat"
	chatMarkChatReadMethod = "/sphinxd.v1.ChatService/MarkChatRead"
	chatWatchFeedMethod    = "/sphinxd.v1.ChatService/WatchFeed"

	defaultListLimit = 50
)

// SeenMarker reports seen chats to the relay, best effort.
type SeenMarker interface {
	MarkSeen(ctx context.Context, chatID int64)
}

// ChatServiceServer is the server contract for conversation RPCs.
type ChatServiceServer interface {
	ListChats(ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error)
	OpenChat(ctx context.Context, req *OpenChatRequest) (*OpenChatResponse, error)
	CloseChat(ctx context.Context, req *CloseChatRequest) (*CloseChatResponse, error)
	MarkChatRead(ctx context.Context, req *MarkChatReadRequest) (*MarkChatReadResponse, error)
	WatchFeed(req *WatchFeedRequest, stream ChatService_WatchFeedServer) error
}

// ChatService serves conversation listing, feed access and read marking
// over the store and the feed watcher.
type ChatService struct {
	db      *store.DB
	watcher *feed.Watcher
	relay   SeenMarker
	bus     *bus.Bus
	ownerID int64
	account string
}

// NewChatService creates a chat service. relay may be nil when the daemon
// has no credentials yet.
func NewChatService(db *store.DB, watcher *feed.Watcher, relay SeenMarker, b *bus.Bus, ownerID int64, account string) *ChatService {
	return &ChatService{
		db:      db,
		watcher: watcher,
		relay:   relay,
		bus:     b,
		ownerID: ownerID,
		account: account,
	}
}

func (s *ChatService) ListChats(_ context.Context, req *ListChatsRequest) (*ListChatsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	chats, err := s.db.ListChats(limit, req.Offset)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list chats: %v", err)
	}
	return &ListChatsResponse{Chats: chats, HasMore: len(chats) == limit}, nil
}

// OpenChat marks the conversation open on the watcher, so mutations keep
// its feed fresh, and returns the current feed.
func (s *ChatService) OpenChat(_ context.Context, req *OpenChatRequest) (*OpenChatResponse, error) {
	s.watcher.OpenChat(req.ChatID)
	result, err := s.watcher.Assemble(req.ChatID)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "assemble feed: %v", err)
	}
	return &OpenChatResponse{Feed: result}, nil
}

func (s *ChatService) CloseChat(_ context.Context, req *CloseChatRequest) (*CloseChatResponse, error) {
	s.watcher.CloseChat(req.ChatID)
	return &CloseChatResponse{}, nil
}

// MarkChatRead flags the chat and its messages seen locally, reports the
// read state to the relay and nudges watchers so unseen counters recompute.
func (s *ChatService) MarkChatRead(ctx context.Context, req *MarkChatReadRequest) (*MarkChatReadResponse, error) {
	ids, err := s.db.MarkChatSeen(req.ChatID, s.ownerID)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "mark chat seen: %v", err)
	}
	if s.relay != nil {
		s.relay.MarkSeen(ctx, req.ChatID)
	}
	s.bus.Publish(bus.Event{
		Kind:      bus.KindMessagesSeen,
		Timestamp: time.Now(),
		Payload:   map[string]int64{"chat_id": req.ChatID},
	})
	return &MarkChatReadResponse{MessageIDs: ids}, nil
}

// WatchFeed streams recomputed feeds until the client goes away.
func (s *ChatService) WatchFeed(req *WatchFeedRequest, stream ChatService_WatchFeedServer) error {
	ch, unsub := s.bus.Subscribe("feed.", 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			update, ok := evt.Payload.(feed.Update)
			if !ok {
				continue
			}
			if req.ChatID != 0 && update.ChatID != req.ChatID {
				continue
			}
			err := stream.Send(&FeedEvent{
				Account:          s.account,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Update:           update,
			})
			if err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

// ChatService_WatchFeedServer is the server side of the WatchFeed stream.
type ChatService_WatchFeedServer interface {
	Send(*FeedEvent) error
	grpc.ServerStream
}

type chatWatchFeedServer struct {
	grpc.ServerStream
}

func (s *chatWatchFeedServer) Send(evt *FeedEvent) error {
	return s.ServerStream.SendMsg(evt)
}

// RegisterChatServiceServer registers the chat service with a gRPC server.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&chatServiceDesc, srv)
}

func listChatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListChatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).ListChats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: chatListChatsMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).ListChats(ctx, req.(*ListChatsRequest))
	})
}

func openChatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(OpenChatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).OpenChat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: chatOpenChatMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).OpenChat(ctx, req.(*OpenChatRequest))
	})
}

func closeChatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CloseChatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).CloseChat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: chatCloseChatMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).CloseChat(ctx, req.(*CloseChatRequest))
	})
}

func markChatReadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MarkChatReadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).MarkChatRead(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: chatMarkChatReadMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).MarkChatRead(ctx, req.(*MarkChatReadRequest))
	})
}

func watchFeedHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchFeedRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServiceServer).WatchFeed(in, &chatWatchFeedServer{stream})
}

var chatServiceDesc = grpc.ServiceDesc{
	ServiceName: "sphinxd.v1.ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListChats", Handler: listChatsHandler},
		{MethodName: "OpenChat", Handler: openChatHandler},
		{MethodName: "CloseChat", Handler: closeChatHandler},
		{MethodName: "MarkChatRead", Handler: markChatReadHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchFeed", Handler: watchFeedHandler, ServerStreams: true},
	},
}
