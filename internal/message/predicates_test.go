package message

import (
	"testing"
	"time"
)

func TestAvoidsGrouping(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"plain message", Message{Type: TypeMessage, Status: StatusReceived}, false},
		{"payment", Message{Type: TypePayment, Status: StatusReceived}, true},
		{"invoice", Message{Type: TypeInvoice, Status: StatusReceived}, true},
		{"group join", Message{Type: TypeGroupJoin, Status: StatusReceived}, true},
		{"deleted", Message{Type: TypeMessage, Status: StatusDeleted}, true},
		{"pending", Message{Type: TypeMessage, Status: StatusPending}, true},
		{"attachment", Message{Type: TypeAttachment, Status: StatusReceived}, false},
		{"expired invoice", Message{Type: TypeInvoice, Status: StatusReceived, Expiry: &past}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.AvoidsGrouping(); got != tt.want {
				t.Errorf("AvoidsGrouping() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameSenderAs(t *testing.T) {
	a := Message{SenderID: 2, SenderAlias: "alice", SenderPic: "p1"}

	same := a
	if !a.SameSenderAs(&same) {
		t.Error("identical sender fields should match")
	}

	alias := a
	alias.SenderAlias = "anon"
	if a.SameSenderAs(&alias) {
		t.Error("different alias must not match")
	}

	pic := a
	pic.SenderPic = "p2"
	if a.SameSenderAs(&pic) {
		t.Error("different picture must not match")
	}

	if a.SameSenderAs(nil) {
		t.Error("nil neighbor must not match")
	}
}

func TestBoostClassification(t *testing.T) {
	reaction := Message{Type: TypeBoost, ReplyUUID: "u1"}
	if !reaction.IsMessageReaction() || reaction.IsPodcastBoost() {
		t.Error("boost with reply UUID is a message reaction")
	}

	podcast := Message{Type: TypeBoost, Content: `boost::{"ts":1}`}
	if !podcast.IsPodcastBoost() || podcast.IsMessageReaction() {
		t.Error("boost without reply UUID is a podcast boost")
	}
}

func TestMUIDFallback(t *testing.T) {
	m := Message{Muid: "a", OriginalMuid: "b"}
	if m.MUID() != "a" {
		t.Errorf("MUID() = %q, want a", m.MUID())
	}
	m.Muid = ""
	if m.MUID() != "b" {
		t.Errorf("MUID() = %q, want b (fallback)", m.MUID())
	}
}

func TestDirection(t *testing.T) {
	m := Message{SenderID: 2}
	if !m.IsIncoming(1) || m.IsOutgoing(1) {
		t.Error("message from another sender is incoming")
	}
	if !m.IsOutgoing(2) || m.IsIncoming(2) {
		t.Error("message from the owner is outgoing")
	}
}
