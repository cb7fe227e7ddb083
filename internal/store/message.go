package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/message"
)

const messageColumns = `id, uuid, chat_id, sender_id, sender_alias, sender_pic, receiver_id,
	type, status, date, expiry, seen, push, amount, media_token, media_type,
	muid, original_muid, reply_uuid, thread_uuid, payment_hash, content`

// UpsertMessage inserts or updates a message (idempotent on id).
func (db *DB) UpsertMessage(m *message.Message) error {
	var expiry any
	if m.Expiry != nil {
		expiry = m.Expiry.UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, uuid, chat_id, sender_id, sender_alias, sender_pic, receiver_id,
			type, status, date, expiry, seen, push, amount, media_token, media_type,
			muid, original_muid, reply_uuid, thread_uuid, payment_hash, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uuid = excluded.uuid,
			status = excluded.status,
			seen = excluded.seen,
			content = excluded.content`,
		m.ID, m.UUID, m.ChatID, m.SenderID, m.SenderAlias, m.SenderPic, m.ReceiverID,
		int(m.Type), int(m.Status), m.Date.UnixMilli(), expiry, m.Seen, m.Push, m.Amount,
		m.MediaToken, m.MediaType, m.Muid, m.OriginalMuid, m.ReplyUUID, m.ThreadUUID,
		m.PaymentHash, m.Content, time.Now().UnixMilli())
	return err
}

// ListMessages returns messages for a chat ordered by (date desc, id desc)
// using keyset pagination, optionally excluding message types. A zero
// before time means "from the newest".
func (db *DB) ListMessages(chatID int64, before time.Time, limit int, excludeTypes []message.Type) ([]message.Message, error) {
	if limit <= 0 {
		limit = 500
	}
	beforeMs := before.UnixMilli()
	if before.IsZero() {
		beforeMs = time.Now().UnixMilli() + 1
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE chat_id = ? AND date < ?`, messageColumns)
	args := []any{chatID, beforeMs}

	if len(excludeTypes) > 0 {
		query += fmt.Sprintf(" AND type NOT IN (%s)", placeholders(len(excludeTypes)))
		for _, t := range excludeTypes {
			args = append(args, int(t))
		}
	}
	query += " ORDER BY date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return db.queryMessages(query, args...)
}

// MessagesByUUIDs resolves a set of messages by UUID in one query.
func (db *DB) MessagesByUUIDs(uuids []string) ([]message.Message, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE uuid IN (%s)`,
		messageColumns, placeholders(len(uuids)))
	return db.queryMessages(query, toAnySlice(uuids)...)
}

// BoostsByReplyUUIDs returns boost reactions on the given messages in one query.
func (db *DB) BoostsByReplyUUIDs(chatID int64, uuids []string) ([]message.Message, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE chat_id = ? AND type = ? AND reply_uuid != '' AND reply_uuid IN (%s)`,
		messageColumns, placeholders(len(uuids)))
	args := append([]any{chatID, int(message.TypeBoost)}, toAnySlice(uuids)...)
	return db.queryMessages(query, args...)
}

// PurchaseItemsByMUIDs returns purchase request/accept/deny messages for the
// given media identifiers in one query. Both muid and original_muid match so
// forwarded attachments resolve too.
func (db *DB) PurchaseItemsByMUIDs(chatID int64, muids []string) ([]message.Message, error) {
	if len(muids) == 0 {
		return nil, nil
	}
	ph := placeholders(len(muids))
	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE chat_id = ? AND type IN (?, ?, ?) AND (muid IN (%s) OR original_muid IN (%s))`,
		messageColumns, ph, ph)
	args := []any{chatID, int(message.TypePurchase), int(message.TypePurchaseAccept), int(message.TypePurchaseDeny)}
	args = append(args, toAnySlice(muids)...)
	args = append(args, toAnySlice(muids)...)
	return db.queryMessages(query, args...)
}

// MarkMessagesSeen flags every incoming message of a chat as seen and
// returns the affected message ids for relay reporting.
func (db *DB) MarkMessagesSeen(chatID, ownerID int64) ([]int64, error) {
	rows, err := db.Query(`
		SELECT id FROM messages WHERE chat_id = ? AND sender_id != ? AND seen = 0`,
		chatID, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := db.Exec(`
		UPDATE messages SET seen = 1 WHERE chat_id = ? AND sender_id != ? AND seen = 0`,
		chatID, ownerID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (db *DB) queryMessages(query string, args ...any) ([]message.Message, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanMessage(rows *sql.Rows) (message.Message, error) {
	var (
		m         message.Message
		msgType   int
		msgStatus int
		dateMs    int64
		expiryMs  sql.NullInt64
	)
	err := rows.Scan(&m.ID, &m.UUID, &m.ChatID, &m.SenderID, &m.SenderAlias, &m.SenderPic,
		&m.ReceiverID, &msgType, &msgStatus, &dateMs, &expiryMs, &m.Seen, &m.Push,
		&m.Amount, &m.MediaToken, &m.MediaType, &m.Muid, &m.OriginalMuid,
		&m.ReplyUUID, &m.ThreadUUID, &m.PaymentHash, &m.Content)
	if err != nil {
		return m, err
	}
	m.Type = message.Type(msgType)
	m.Status = message.Status(msgStatus)
	m.Date = time.UnixMilli(dateMs)
	if expiryMs.Valid {
		t := time.UnixMilli(expiryMs.Int64)
		m.Expiry = &t
	}
	return m, nil
}
