package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/message"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"go.uber.org/zap"
)

// checkpointKey records the highest relay message id applied by history
// sync, so a reconnect can request history after it.
const checkpointKey = "history.last_msg_id"

// Engine handles idempotent ingestion of relay messages into the store.
// It subscribes to "relay.*" events on the bus and processes them.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates a new ingestion engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to inbound relay events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("relay.", 256)

	if last, err := e.db.GetCheckpoint(checkpointKey); err == nil && last != "" {
		e.logger.Info("resuming history sync", zap.String("after_msg_id", last))
	}

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "relay.message":
		msg, ok := evt.Payload.(*message.Message)
		if !ok {
			return
		}
		if err := e.IngestMessage(msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.Int64("msg_id", msg.ID))
		}
	case "relay.history_batch":
		msgs, ok := evt.Payload.([]*message.Message)
		if !ok {
			return
		}
		if err := e.IngestHistoryBatch(msgs); err != nil {
			e.logger.Error("failed to ingest history batch", zap.Error(err), zap.Int("count", len(msgs)))
		} else {
			e.logger.Info("history batch ingested", zap.Int("messages", len(msgs)))
		}
	}
}

// IngestMessage processes a single message into the store (idempotent).
// Incoming messages invalidate the chat's seen flag so unseen counters
// recompute on next read.
func (e *Engine) IngestMessage(msg *message.Message) error {
	if err := e.db.UpsertChat(&store.Chat{
		ID:                 msg.ChatID,
		LastMessageAt:      msg.Date.UnixMilli(),
		LastMessagePreview: preview(msg),
	}); err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}

	if err := e.db.UpsertMessage(msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      bus.KindMessageUpserted,
		Timestamp: time.Now(),
		Payload: map[string]int64{
			"chat_id": msg.ChatID,
			"msg_id":  msg.ID,
		},
	})

	return nil
}

// IngestHistoryBatch processes a batch of history messages in a transaction.
func (e *Engine) IngestHistoryBatch(msgs []*message.Message) error {
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	count := 0
	var maxID int64

	for _, msg := range msgs {
		if msg.ID > maxID {
			maxID = msg.ID
		}
		if _, err := tx.Exec(`
			INSERT INTO chats (id, last_message_at, last_message_preview, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
				last_message_preview = CASE WHEN excluded.last_message_at > chats.last_message_at THEN excluded.last_message_preview ELSE chats.last_message_preview END,
				updated_at = excluded.updated_at`,
			msg.ChatID, msg.Date.UnixMilli(), preview(msg), now); err != nil {
			return fmt.Errorf("upsert chat in batch: %w", err)
		}

		var expiry any
		if msg.Expiry != nil {
			expiry = msg.Expiry.UnixMilli()
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (id, uuid, chat_id, sender_id, sender_alias, sender_pic, receiver_id,
				type, status, date, expiry, seen, push, amount, media_token, media_type,
				muid, original_muid, reply_uuid, thread_uuid, payment_hash, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				uuid = excluded.uuid,
				status = excluded.status,
				seen = excluded.seen,
				content = excluded.content`,
			msg.ID, msg.UUID, msg.ChatID, msg.SenderID, msg.SenderAlias, msg.SenderPic,
			msg.ReceiverID, int(msg.Type), int(msg.Status), msg.Date.UnixMilli(), expiry,
			msg.Seen, msg.Push, msg.Amount, msg.MediaToken, msg.MediaType, msg.Muid,
			msg.OriginalMuid, msg.ReplyUUID, msg.ThreadUUID, msg.PaymentHash, msg.Content,
			now); err != nil {
			return fmt.Errorf("upsert message in batch: %w", err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if maxID > 0 {
		if err := e.db.SetCheckpoint(checkpointKey, strconv.FormatInt(maxID, 10)); err != nil {
			e.logger.Warn("failed to record history checkpoint", zap.Error(err))
		}
	}

	e.bus.Publish(bus.Event{
		Kind:      "sync.history_batch",
		Timestamp: time.Now(),
		Payload:   map[string]int{"messages_count": count},
	})

	return nil
}

func preview(msg *message.Message) string {
	if msg.IsPodcastComment() || msg.IsPodcastBoost() {
		if p, ok := message.ParseClipPayload(msg.Content); ok && p.Text != "" {
			return truncate(p.Text, 100)
		}
	}
	return truncate(msg.Content, 100)
}

// truncate shortens s to at most maxRunes characters. Cutting on rune
// boundaries keeps previews valid UTF-8.
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
