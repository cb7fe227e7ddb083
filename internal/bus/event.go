package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the daemon. Subscribers filter by namespace
// prefix, e.g. "message." receives every message event.
const (
	KindMessageUpserted   = "message.upserted"
	KindMessagesSeen      = "message.seen"
	KindMessageSendAck    = "message.send_ack"
	KindMessageSendFailed = "message.send_failed"
	KindChatMetaSynced    = "chat.meta_synced"
	KindFeedUpdated       = "feed.updated"
	KindPlayerState       = "player.state_changed"
	KindRelayStatus       = "relay.status_changed"
)
