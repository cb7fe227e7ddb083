package api

import (
	"github.com/sphinx-chat/sphinxd/internal/feed"
	"github.com/sphinx-chat/sphinxd/internal/message"
	"github.com/sphinx-chat/sphinxd/internal/player"
	"github.com/sphinx-chat/sphinxd/internal/store"
)

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Account string `json:"account"`
	Status  string `json:"status"`
}

type ListChatsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type ListChatsResponse struct {
	Chats   []store.Chat `json:"chats"`
	HasMore bool         `json:"has_more"`
}

type OpenChatRequest struct {
	ChatID int64 `json:"chat_id"`
}

// OpenChatResponse carries the freshly assembled feed so a client can
// render the conversation without waiting for the first feed event.
type OpenChatResponse struct {
	Feed feed.Result `json:"feed"`
}

type CloseChatRequest struct {
	ChatID int64 `json:"chat_id"`
}

type CloseChatResponse struct{}

type MarkChatReadRequest struct {
	ChatID int64 `json:"chat_id"`
}

type MarkChatReadResponse struct {
	MessageIDs []int64 `json:"message_ids"`
}

// WatchFeedRequest subscribes to recomputed feeds. ChatID zero watches
// every open conversation.
type WatchFeedRequest struct {
	ChatID int64 `json:"chat_id,omitempty"`
}

type FeedEvent struct {
	Account          string      `json:"account"`
	OccurredAtUnixMs int64       `json:"occurred_at_unix_ms"`
	Update           feed.Update `json:"update"`
}

type SendTextRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type SendTextResponse struct {
	ClientMsgID string `json:"client_msg_id"`
}

type ListMessagesRequest struct {
	ChatID       int64 `json:"chat_id"`
	BeforeUnixMs int64 `json:"before_unix_ms,omitempty"`
	Limit        int   `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []message.Message `json:"messages"`
}

// SubmitActionRequest funnels a playback request to the controller. Kind is
// one of "preload", "play", "pause", "seek" or "adjust_speed".
type SubmitActionRequest struct {
	Kind    string             `json:"kind"`
	Session player.PodcastData `json:"session"`
}

type SubmitActionResponse struct{}

type PlayerStateRequest struct{}

type PlayerStateResponse struct {
	State   string              `json:"state"`
	Session *player.PodcastData `json:"session,omitempty"`
}

type BoostRequest struct {
	Session player.PodcastData `json:"session"`
	Amount  int                `json:"amount"`
	UUID    string             `json:"uuid,omitempty"`
}

type BoostResponse struct{}
