package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/message"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + message indexes)", result.Version)
	}
}

func storedMessage(id, chatID, senderID int64, at time.Time) *message.Message {
	return &message.Message{
		ID:       id,
		UUID:     "",
		ChatID:   chatID,
		SenderID: senderID,
		Type:     message.TypeMessage,
		Status:   message.StatusReceived,
		Date:     at,
		Content:  "hello",
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)
	at := time.Now().Truncate(time.Millisecond)

	m := storedMessage(1, 7, 2, at)
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	m.Content = "edited"
	m.Status = message.StatusSeen
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(7, time.Time{}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Content != "edited" || msgs[0].Status != message.StatusSeen {
		t.Errorf("message = %+v, want updated content and status", msgs[0])
	}
	if !msgs[0].Date.Equal(at) {
		t.Errorf("date = %v, want %v", msgs[0].Date, at)
	}
}

func TestListMessagesPaginationAndExclusion(t *testing.T) {
	db := testDB(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	for i := int64(1); i <= 5; i++ {
		m := storedMessage(i, 7, 2, base.Add(time.Duration(i)*time.Minute))
		if i == 3 {
			m.Type = message.TypeContactKey
		}
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages(7, time.Time{}, 10, []message.Type{message.TypeContactKey})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4 (contact key excluded)", len(msgs))
	}
	// Newest first.
	if msgs[0].ID != 5 {
		t.Errorf("first id = %d, want 5", msgs[0].ID)
	}

	// Keyset page older than message 4.
	older, err := db.ListMessages(7, base.Add(4*time.Minute), 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range older {
		if m.ID >= 4 {
			t.Errorf("page contains id %d, want only ids older than 4", m.ID)
		}
	}
}

func TestMessagesByUUIDs(t *testing.T) {
	db := testDB(t)
	at := time.Now()

	m := storedMessage(1, 7, 2, at)
	m.UUID = "u1"
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.MessagesByUUIDs([]string{"u1", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].UUID != "u1" {
		t.Errorf("got %+v, want the u1 message", msgs)
	}

	if msgs, err := db.MessagesByUUIDs(nil); err != nil || msgs != nil {
		t.Errorf("empty input should short-circuit, got %v %v", msgs, err)
	}
}

func TestBoostsByReplyUUIDs(t *testing.T) {
	db := testDB(t)
	at := time.Now()

	parent := storedMessage(1, 7, 2, at)
	parent.UUID = "parent"

	boost := storedMessage(2, 7, 3, at.Add(time.Minute))
	boost.Type = message.TypeBoost
	boost.ReplyUUID = "parent"
	boost.Amount = 100

	reply := storedMessage(3, 7, 3, at.Add(2*time.Minute))
	reply.ReplyUUID = "parent" // plain reply, not a boost

	otherChat := storedMessage(4, 8, 3, at.Add(3*time.Minute))
	otherChat.Type = message.TypeBoost
	otherChat.ReplyUUID = "parent"

	for _, m := range []*message.Message{parent, boost, reply, otherChat} {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	boosts, err := db.BoostsByReplyUUIDs(7, []string{"parent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(boosts) != 1 || boosts[0].ID != 2 {
		t.Errorf("got %+v, want only the boost in chat 7", boosts)
	}
}

func TestPurchaseItemsByMUIDs(t *testing.T) {
	db := testDB(t)
	at := time.Now()

	attachment := storedMessage(1, 7, 2, at)
	attachment.Type = message.TypeAttachment
	attachment.Muid = "media-1"

	accept := storedMessage(2, 7, 2, at.Add(time.Minute))
	accept.Type = message.TypePurchaseAccept
	accept.OriginalMuid = "media-1" // forwarded attachment resolves via original muid

	deny := storedMessage(3, 7, 2, at.Add(2*time.Minute))
	deny.Type = message.TypePurchaseDeny
	deny.Muid = "media-2"

	for _, m := range []*message.Message{attachment, accept, deny} {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	items, err := db.PurchaseItemsByMUIDs(7, []string{"media-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Errorf("got %+v, want the accept via original_muid", items)
	}
}

func TestExpiryRoundTrip(t *testing.T) {
	db := testDB(t)
	at := time.Now().Truncate(time.Millisecond)
	expiry := at.Add(time.Hour)

	m := storedMessage(1, 7, 2, at)
	m.Type = message.TypeInvoice
	m.Expiry = &expiry
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(7, time.Time{}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Expiry == nil || !msgs[0].Expiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", msgs[0].Expiry, expiry)
	}

	noExpiry := storedMessage(2, 9, 2, at)
	if err := db.UpsertMessage(noExpiry); err != nil {
		t.Fatal(err)
	}
	msgs, err = db.ListMessages(9, time.Time{}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Expiry != nil {
		t.Errorf("expiry = %v, want nil", msgs[0].Expiry)
	}
}

func TestChatUpsertKeepsNewestPreview(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{ID: 7, Name: "Tribe", LastMessageAt: 2000, LastMessagePreview: "new"}); err != nil {
		t.Fatal(err)
	}
	// An older upsert must not regress the preview or timestamp.
	if err := db.UpsertChat(&Chat{ID: 7, Name: "Tribe", LastMessageAt: 1000, LastMessagePreview: "old"}); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetChat(7)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.LastMessageAt != 2000 || c.LastMessagePreview != "new" {
		t.Errorf("chat = %+v, want newest preview kept", c)
	}
}

func TestUnseenCounts(t *testing.T) {
	db := testDB(t)
	const owner = int64(1)
	at := time.Now()

	if err := db.UpsertChat(&Chat{ID: 7, Name: "Tribe"}); err != nil {
		t.Fatal(err)
	}

	unseen := storedMessage(1, 7, 2, at)
	mention := storedMessage(2, 7, 2, at.Add(time.Minute))
	mention.Push = true
	mine := storedMessage(3, 7, owner, at.Add(2*time.Minute))
	seen := storedMessage(4, 7, 2, at.Add(3*time.Minute))
	seen.Seen = true

	for _, m := range []*message.Message{unseen, mention, mine, seen} {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := db.UnseenCounts(7, owner)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Messages != 2 || counts.Mentions != 1 {
		t.Errorf("counts = %+v, want 2 messages / 1 mention", counts)
	}

	// Marking the chat seen zeroes the counters and reports the ids.
	ids, err := db.MarkChatSeen(7, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("marked %d messages, want 2", len(ids))
	}

	counts, err = db.UnseenCounts(7, owner)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Messages != 0 || counts.Mentions != 0 {
		t.Errorf("counts after seen = %+v, want zero", counts)
	}

	chatSeen, err := db.ChatSeen(7)
	if err != nil {
		t.Fatal(err)
	}
	if !chatSeen {
		t.Error("chat should be flagged seen")
	}

	// Unknown chats report zero without error.
	counts, err = db.UnseenCounts(999, owner)
	if err != nil || counts.Messages != 0 {
		t.Errorf("unknown chat counts = %+v err = %v", counts, err)
	}
}

func TestJoinedTribeUUIDs(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{ID: 7, UUID: "tribe-a", IsTribe: true}); err != nil {
		t.Fatal(err)
	}

	joined, err := db.JoinedTribeUUIDs([]string{"tribe-a", "tribe-b"})
	if err != nil {
		t.Fatal(err)
	}
	if !joined["tribe-a"] || joined["tribe-b"] {
		t.Errorf("joined = %v, want only tribe-a", joined)
	}
}

func TestContacts(t *testing.T) {
	db := testDB(t)

	owner := &message.Contact{ID: 1, Pubkey: "pk-owner", Alias: "me", IsOwner: true}
	friend := &message.Contact{ID: 2, Pubkey: "pk-friend", Alias: "friend"}
	for _, c := range []*message.Contact{owner, friend} {
		if err := db.UpsertContact(c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.Owner()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != 1 {
		t.Errorf("owner = %+v, want contact 1", got)
	}

	contacts, err := db.ContactsByPubkeys([]string{"pk-friend"})
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].Alias != "friend" {
		t.Errorf("contacts = %+v", contacts)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox("c1", 7, "hello"); err != nil {
		t.Fatal(err)
	}
	// Re-queueing the same client id is a no-op.
	if err := db.QueueOutbox("c1", 7, "hello again"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Content != "hello" {
		t.Fatalf("pending = %+v, want the original entry", pending)
	}

	if err := db.MarkOutboxSending("c1"); err != nil {
		t.Fatal(err)
	}
	pending, _ = db.PendingOutbox()
	if len(pending) != 0 {
		t.Error("sending entries must not be pending")
	}

	if err := db.MarkOutboxSent("c1", 42); err != nil {
		t.Fatal(err)
	}
	var status string
	var relayID int64
	if err := db.QueryRow(`SELECT status, relay_msg_id FROM outbox WHERE client_msg_id = 'c1'`).
		Scan(&status, &relayID); err != nil {
		t.Fatal(err)
	}
	if status != "sent" || relayID != 42 {
		t.Errorf("status = %q relay id = %d, want sent/42", status, relayID)
	}

	if err := db.QueueOutbox("c2", 7, "oops"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("c2", "relay down"); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT status FROM outbox WHERE client_msg_id = 'c2'`).
		Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
}

func TestChatMetaRoundTrip(t *testing.T) {
	db := testDB(t)

	meta := &ChatMeta{ChatID: 7, PodcastID: "f1", EpisodeID: "e1", CurrentTime: 93, SatsPerMinute: 10, Speed: 1.5}
	if err := db.SaveChatMeta(meta); err != nil {
		t.Fatal(err)
	}
	meta.CurrentTime = 120
	if err := db.SaveChatMeta(meta); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetChatMeta(7)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.CurrentTime != 120 || got.Speed != 1.5 {
		t.Errorf("meta = %+v, want updated position", got)
	}

	missing, err := db.GetChatMeta(999)
	if err != nil || missing != nil {
		t.Errorf("missing meta = %+v err = %v, want nil/nil", missing, err)
	}
}

func TestCheckpoints(t *testing.T) {
	db := testDB(t)

	if v, err := db.GetCheckpoint("history"); err != nil || v != "" {
		t.Errorf("missing checkpoint = %q err = %v, want empty", v, err)
	}
	if err := db.SetCheckpoint("history", "1000"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetCheckpoint("history", "2000"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetCheckpoint("history"); v != "2000" {
		t.Errorf("checkpoint = %q, want 2000", v)
	}
}
