package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Chat represents a conversation: either a direct conversation or a tribe.
type Chat struct {
	ID                 int64
	UUID               string
	Name               string
	PhotoURL           string
	IsTribe            bool
	OwnerPubkey        string
	Seen               bool
	LastMessageAt      int64
	LastMessagePreview string
}

// UnseenCounts holds a chat's unseen message and mention counters.
type UnseenCounts struct {
	Messages int
	Mentions int
}

// UpsertChat inserts or updates a chat record.
func (db *DB) UpsertChat(c *Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (id, uuid, name, photo_url, is_tribe, owner_pubkey, seen, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uuid = excluded.uuid,
			name = excluded.name,
			photo_url = excluded.photo_url,
			is_tribe = excluded.is_tribe,
			owner_pubkey = excluded.owner_pubkey,
			seen = excluded.seen,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			last_message_preview = CASE WHEN excluded.last_message_at >= chats.last_message_at THEN excluded.last_message_preview ELSE chats.last_message_preview END,
			updated_at = excluded.updated_at`,
		c.ID, c.UUID, c.Name, c.PhotoURL, c.IsTribe, c.OwnerPubkey, c.Seen,
		c.LastMessageAt, c.LastMessagePreview, now)
	return err
}

// ListChats returns chats sorted by last message timestamp descending.
func (db *DB) ListChats(limit, offset int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, uuid, name, photo_url, is_tribe, owner_pubkey, seen, last_message_at, last_message_preview
		FROM chats
		ORDER BY last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.UUID, &c.Name, &c.PhotoURL, &c.IsTribe,
			&c.OwnerPubkey, &c.Seen, &c.LastMessageAt, &c.LastMessagePreview); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by id, or nil when absent.
func (db *DB) GetChat(id int64) (*Chat, error) {
	var c Chat
	err := db.QueryRow(`
		SELECT id, uuid, name, photo_url, is_tribe, owner_pubkey, seen, last_message_at, last_message_preview
		FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.UUID, &c.Name, &c.PhotoURL, &c.IsTribe,
			&c.OwnerPubkey, &c.Seen, &c.LastMessageAt, &c.LastMessagePreview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// JoinedTribeUUIDs reports which of the given tribe UUIDs exist locally,
// meaning the owner has joined them.
func (db *DB) JoinedTribeUUIDs(uuids []string) (map[string]bool, error) {
	joined := make(map[string]bool)
	if len(uuids) == 0 {
		return joined, nil
	}
	query := fmt.Sprintf(`SELECT uuid FROM chats WHERE uuid IN (%s)`, placeholders(len(uuids)))
	rows, err := db.Query(query, toAnySlice(uuids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, err
		}
		joined[uuid] = true
	}
	return joined, rows.Err()
}

// UnseenCounts computes a chat's unseen message and mention counters in one
// query. Chats already marked seen report zero.
func (db *DB) UnseenCounts(chatID, ownerID int64) (UnseenCounts, error) {
	var counts UnseenCounts

	var chatSeen bool
	err := db.QueryRow(`SELECT seen FROM chats WHERE id = ?`, chatID).Scan(&chatSeen)
	if err == sql.ErrNoRows {
		return counts, nil
	}
	if err != nil {
		return counts, err
	}
	if chatSeen {
		return counts, nil
	}

	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(push), 0)
		FROM messages
		WHERE chat_id = ? AND sender_id != ? AND seen = 0`,
		chatID, ownerID).Scan(&counts.Messages, &counts.Mentions)
	return counts, err
}

// ChatSeen reports whether the chat is marked seen. Unknown chats report
// false.
func (db *DB) ChatSeen(chatID int64) (bool, error) {
	var seen bool
	err := db.QueryRow(`SELECT seen FROM chats WHERE id = ?`, chatID).Scan(&seen)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return seen, nil
}

// MarkChatSeen flags the chat and all its incoming messages as seen,
// returning the ids of the newly seen messages for relay reporting.
func (db *DB) MarkChatSeen(chatID, ownerID int64) ([]int64, error) {
	if _, err := db.Exec(`UPDATE chats SET seen = 1 WHERE id = ?`, chatID); err != nil {
		return nil, err
	}
	return db.MarkMessagesSeen(chatID, ownerID)
}
