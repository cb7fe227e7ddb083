package api

import (
	"context"

	"github.com/sphinx-chat/sphinxd/internal/player"
	"google.golang.org/grpc"
)

// Client wraps a daemon control connection, selecting the JSON codec on
// every call.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an established gRPC connection to a daemon socket.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(codecName))
}

func (c *Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	out := new(GetStatusResponse)
	if err := c.invoke(ctx, sessionGetStatusMethod, &GetStatusRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListChats(ctx context.Context, limit, offset int) (*ListChatsResponse, error) {
	out := new(ListChatsResponse)
	if err := c.invoke(ctx, chatListChatsMethod, &ListChatsRequest{Limit: limit, Offset: offset}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OpenChat(ctx context.Context, chatID int64) (*OpenChatResponse, error) {
	out := new(OpenChatResponse)
	if err := c.invoke(ctx, chatOpenChatMethod, &OpenChatRequest{ChatID: chatID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CloseChat(ctx context.Context, chatID int64) error {
	return c.invoke(ctx, chatCloseChatMethod, &CloseChatRequest{ChatID: chatID}, new(CloseChatResponse))
}

func (c *Client) MarkChatRead(ctx context.Context, chatID int64) (*MarkChatReadResponse, error) {
	out := new(MarkChatReadResponse)
	if err := c.invoke(ctx, chatMarkChatReadMethod, &MarkChatReadRequest{ChatID: chatID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) (*SendTextResponse, error) {
	out := new(SendTextResponse)
	if err := c.invoke(ctx, messageSendTextMethod, &SendTextRequest{ChatID: chatID, Text: text}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	out := new(ListMessagesResponse)
	if err := c.invoke(ctx, messageListMessagesMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitAction(ctx context.Context, kind string, session player.PodcastData) error {
	req := &SubmitActionRequest{Kind: kind, Session: session}
	return c.invoke(ctx, playerSubmitActionMethod, req, new(SubmitActionResponse))
}

func (c *Client) PlayerState(ctx context.Context) (*PlayerStateResponse, error) {
	out := new(PlayerStateResponse)
	if err := c.invoke(ctx, playerGetStateMethod, &PlayerStateRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Boost(ctx context.Context, session player.PodcastData, amount int, uuid string) error {
	req := &BoostRequest{Session: session, Amount: amount, UUID: uuid}
	return c.invoke(ctx, playerBoostMethod, req, new(BoostResponse))
}

// FeedWatch is the client side of a WatchFeed stream.
type FeedWatch struct {
	stream grpc.ClientStream
}

// Recv blocks for the next feed event.
func (w *FeedWatch) Recv() (*FeedEvent, error) {
	evt := new(FeedEvent)
	if err := w.stream.RecvMsg(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

var watchFeedStreamDesc = grpc.StreamDesc{
	StreamName:    "WatchFeed",
	ServerStreams: true,
}

// WatchFeed opens a feed event stream. chatID zero watches every open
// conversation.
func (c *Client) WatchFeed(ctx context.Context, chatID int64) (*FeedWatch, error) {
	stream, err := c.conn.NewStream(ctx, &watchFeedStreamDesc, chatWatchFeedMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchFeedRequest{ChatID: chatID}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &FeedWatch{stream: stream}, nil
}
