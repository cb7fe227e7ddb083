package store

import "time"

// OutboxEntry represents a pending outgoing message.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	ChatID       int64
	Content      string
	Status       string // queued, sending, sent, failed
	ErrorMessage string
	RelayMsgID   int64
}

// QueueOutbox enqueues an outgoing message (idempotent on client_msg_id).
func (db *DB) QueueOutbox(clientMsgID string, chatID int64, content string) error {
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, chat_id, content, status, created_at)
		VALUES (?, ?, ?, 'queued', ?)
		ON CONFLICT(client_msg_id) DO NOTHING`,
		clientMsgID, chatID, content, time.Now().UnixMilli())
	return err
}

// PendingOutbox returns queued entries oldest first.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, chat_id, content, status, error_message, relay_msg_id
		FROM outbox WHERE status = 'queued' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.ChatID, &e.Content, &e.Status,
			&e.ErrorMessage, &e.RelayMsgID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkOutboxSending flags an entry as in flight.
func (db *DB) MarkOutboxSending(clientMsgID string) error {
	_, err := db.Exec(`UPDATE outbox SET status = 'sending' WHERE client_msg_id = ?`, clientMsgID)
	return err
}

// MarkOutboxSent records the relay-assigned message id.
func (db *DB) MarkOutboxSent(clientMsgID string, relayMsgID int64) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = 'sent', relay_msg_id = ? WHERE client_msg_id = ?`,
		relayMsgID, clientMsgID)
	return err
}

// MarkOutboxFailed records a delivery failure.
func (db *DB) MarkOutboxFailed(clientMsgID, errorMessage string) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = 'failed', error_message = ? WHERE client_msg_id = ?`,
		errorMessage, clientMsgID)
	return err
}
