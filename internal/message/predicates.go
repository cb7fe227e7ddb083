package message

import "time"

// IsPayment reports whether the message settles an invoice.
func (m *Message) IsPayment() bool {
	return m.Type == TypePayment
}

// IsInvoice reports whether the message is a payment request.
func (m *Message) IsInvoice() bool {
	return m.Type == TypeInvoice
}

// IsPaid reports whether an invoice has been settled.
func (m *Message) IsPaid() bool {
	return m.Status == StatusConfirmed
}

// IsExpired reports whether an invoice's expiry has passed.
func (m *Message) IsExpired() bool {
	if m.Expiry == nil {
		return false
	}
	return m.Expiry.Before(time.Now())
}

func (m *Message) IsDeleted() bool {
	return m.Status == StatusDeleted
}

func (m *Message) IsDirectPayment() bool {
	return m.Type == TypeDirectPayment
}

func (m *Message) IsAttachment() bool {
	return m.Type == TypeAttachment
}

func (m *Message) IsCall() bool {
	return m.Type == TypeCall
}

func (m *Message) IsBotResponse() bool {
	return m.Type == TypeBotResponse
}

// IsGroupAction reports whether the message is a tribe membership event.
// These render as standalone rows and never join a bubble run.
func (m *Message) IsGroupAction() bool {
	switch m.Type {
	case TypeGroupJoin, TypeGroupLeave, TypeGroupKick, TypeGroupDelete,
		TypeMemberRequest, TypeMemberApprove, TypeMemberReject:
		return true
	}
	return false
}

// IsBoost reports whether the message is a micro-payment reaction.
func (m *Message) IsBoost() bool {
	return m.Type == TypeBoost
}

// IsMessageReaction reports whether a boost targets another message (as
// opposed to a podcast boost, which carries no reply UUID).
func (m *Message) IsMessageReaction() bool {
	return m.Type == TypeBoost && (m.ReplyUUID != "" || m.Content == "")
}

// IsPodcastBoost reports whether the boost targets a podcast clip rather
// than a chat message.
func (m *Message) IsPodcastBoost() bool {
	return HasBoostPrefix(m.Content) || (m.Type == TypeBoost && m.ReplyUUID == "")
}

// IsPodcastComment reports whether the content embeds a clip payload.
func (m *Message) IsPodcastComment() bool {
	return HasClipPrefix(m.Content)
}

func (m *Message) IsIncoming(ownerID int64) bool {
	return m.SenderID != ownerID
}

func (m *Message) IsOutgoing(ownerID int64) bool {
	return m.SenderID == ownerID
}

// AvoidsGrouping reports whether the message must never share a bubble run
// with its neighbors regardless of sender and timing.
func (m *Message) AvoidsGrouping() bool {
	return m.IsPayment() || m.IsInvoice() || m.IsGroupAction() || m.IsDeleted() ||
		m.Status == StatusPending
}

// SameSenderAs compares author identity for bubble grouping. Alias and
// picture participate so distinct tribe participants sharing a numeric
// sender id are still told apart.
func (m *Message) SameSenderAs(other *Message) bool {
	if other == nil {
		return false
	}
	return m.SenderID == other.SenderID &&
		m.SenderAlias == other.SenderAlias &&
		m.SenderPic == other.SenderPic
}

// IsReply reports whether the message references a parent via reply UUID.
func (m *Message) IsReply() bool {
	return m.ReplyUUID != ""
}
