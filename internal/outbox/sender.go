package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/message"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"go.uber.org/zap"
)

// MessageSender is the interface for delivering text messages to the relay.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, content string) (relayMsgID int64, err error)
}

// Sender drains the outbox and delivers messages via the relay client.
type Sender struct {
	db      *store.DB
	sender  MessageSender
	bus     *bus.Bus
	ownerID int64
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, sender MessageSender, ownerID int64, b *bus.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		db:      db,
		sender:  sender,
		bus:     b,
		ownerID: ownerID,
		logger:  logger,
	}
}

// Send enqueues an outgoing text message and returns the generated client
// message id. Delivery happens asynchronously on the sender loop; the id
// correlates the eventual ack or failure event.
func (s *Sender) Send(chatID int64, content string) (string, error) {
	clientMsgID := uuid.NewString()
	if err := s.db.QueueOutbox(clientMsgID, chatID, content); err != nil {
		return "", err
	}
	return clientMsgID, nil
}

// Start begins polling the outbox for pending messages.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		relayMsgID, err := s.sender.SendMessage(ctx, entry.ChatID, entry.Content)
		if err != nil {
			s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			_ = s.db.MarkOutboxFailed(entry.ClientMsgID, err.Error())
			s.bus.Publish(bus.Event{
				Kind:      bus.KindMessageSendFailed,
				Timestamp: time.Now(),
				Payload: map[string]string{
					"client_msg_id": entry.ClientMsgID,
					"error":         err.Error(),
				},
			})
			continue
		}

		if err := s.db.MarkOutboxSent(entry.ClientMsgID, relayMsgID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		}

		// Record the delivered message locally so the feed shows it
		// without waiting for the relay to echo it back.
		_ = s.db.UpsertMessage(&message.Message{
			ID:       relayMsgID,
			ChatID:   entry.ChatID,
			SenderID: s.ownerID,
			Type:     message.TypeMessage,
			Status:   message.StatusConfirmed,
			Date:     time.Now(),
			Seen:     true,
			Content:  entry.Content,
		})

		// The upsert event carries chat_id so open-feed watchers refresh
		// immediately; the ack only correlates the client message id.
		s.bus.Publish(bus.Event{
			Kind:      bus.KindMessageUpserted,
			Timestamp: time.Now(),
			Payload: map[string]int64{
				"chat_id": entry.ChatID,
				"msg_id":  relayMsgID,
			},
		})

		s.logger.Info("message sent", zap.String("client_msg_id", entry.ClientMsgID), zap.Int64("relay_msg_id", relayMsgID))
		s.bus.Publish(bus.Event{
			Kind:      bus.KindMessageSendAck,
			Timestamp: time.Now(),
			Payload: map[string]string{
				"client_msg_id": entry.ClientMsgID,
			},
		})
	}
}
