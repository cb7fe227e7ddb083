package message

import "time"

// Type is the transaction message kind as delivered by the relay.
type Type int

const (
	TypeMessage Type = iota
	TypeConfirmation
	TypeInvoice
	TypePayment
	TypeCancellation
	TypeDirectPayment
	TypeAttachment
	TypePurchase
	TypePurchaseAccept
	TypePurchaseDeny
	TypeContactKey
	TypeContactKeyConfirmation
	TypeGroupCreate
	TypeGroupInvite
	TypeGroupJoin
	TypeGroupLeave
	TypeGroupKick
	TypeDelete
	TypeRepayment
	TypeMemberRequest
	TypeMemberApprove
	TypeMemberReject
	TypeGroupDelete
	TypeUnknown
)

const (
	TypeBoost       Type = 29
	TypeCall        Type = 30
	TypeBotResponse Type = 32
)

// Status is the message lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusCancelled
	StatusReceived
	StatusSeen
	StatusDeleted
	StatusFailed
)

// Message is a single chat message as read from the store. Fields scanned
// from SQLite are concrete values; absence is the zero value except where a
// pointer is used (Expiry).
type Message struct {
	ID           int64
	UUID         string
	ChatID       int64
	SenderID     int64
	SenderAlias  string
	SenderPic    string
	ReceiverID   int64
	Type         Type
	Status       Status
	Date         time.Time
	Expiry       *time.Time
	Seen         bool
	Push         bool
	Amount       int64
	MediaToken   string
	MediaType    string
	Muid         string
	OriginalMuid string
	ReplyUUID    string
	ThreadUUID   string
	PaymentHash  string
	Content      string
}

// MUID returns the media identifier correlating an attachment to its binary
// payload, falling back to the original muid for forwarded attachments.
func (m *Message) MUID() string {
	if m.Muid != "" {
		return m.Muid
	}
	return m.OriginalMuid
}
