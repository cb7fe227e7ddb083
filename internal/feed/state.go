package feed

import (
	"time"

	"github.com/sphinx-chat/sphinxd/internal/message"
)

// BubbleState tags a message's position inside a bubble run.
type BubbleState int

const (
	// BubbleNone marks rows rendered without any bubble (deleted messages
	// and tribe membership events).
	BubbleNone BubbleState = iota
	// BubbleEmpty marks standalone rows with an empty bubble (payments and
	// pending invoices).
	BubbleEmpty
	BubbleIsolated
	BubbleFirst
	BubbleMiddle
	BubbleLast
)

func (b BubbleState) String() string {
	switch b {
	case BubbleEmpty:
		return "empty"
	case BubbleIsolated:
		return "isolated"
	case BubbleFirst:
		return "first"
	case BubbleMiddle:
		return "middle"
	case BubbleLast:
		return "last"
	}
	return "none"
}

// Grouped reports whether the state participates in a bubble run.
func (b BubbleState) Grouped() bool {
	return b >= BubbleIsolated
}

// LinkContact is a resolved public-key link found in message content.
type LinkContact struct {
	Pubkey    string
	RouteHint string
	Contact   *message.Contact
}

// LinkTribe is a resolved tribe join link found in message content.
type LinkTribe struct {
	Link     string
	UUID     string
	IsJoined bool
}

// LinkWeb is a plain web link found in message content.
type LinkWeb struct {
	Link string
}

// InvoiceData flags whether an unresolved incoming/outgoing invoice is
// outstanding at this point of the conversation.
type InvoiceData struct {
	PendingIncoming bool
	PendingOutgoing bool
}

// CellState is the derived, ephemeral presentation state for one message.
// It is never persisted; each Assemble call recomputes the full batch.
type CellState struct {
	Message message.Message
	Bubble  BubbleState

	// SeparatorDate is set on the oldest message of each calendar day.
	SeparatorDate *time.Time

	ReplyingTo *message.Message
	Boosts     []message.Message
	// Purchases holds at most one purchase request/accept/deny keyed by type
	// for the message's media identifier.
	Purchases map[message.Type]message.Message

	LinkContact *LinkContact
	LinkTribe   *LinkTribe
	LinkWeb     *LinkWeb

	Invoice InvoiceData

	// NewMessage marks an incoming message not yet seen by the owner.
	NewMessage bool
}

// Result is the assembled presentation of one batch, oldest first.
type Result struct {
	Cells []CellState

	NewMessageCount int
	MentionCount    int
}
