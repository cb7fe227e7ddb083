package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/message"
	"go.uber.org/zap"
)

// HiddenTypes are the message kinds never rendered as conversation rows.
var HiddenTypes = []message.Type{
	message.TypeConfirmation,
	message.TypeContactKey,
	message.TypeContactKeyConfirmation,
	message.TypeRepayment,
	message.TypeUnknown,
}

// DefaultBatchLimit bounds how many messages a refresh reads per chat.
const DefaultBatchLimit = 500

// Store is the query surface the watcher needs from the message store: the
// assembler's batch lookups plus the chat-level reads that feed it.
type Store interface {
	Lookup
	ListMessages(chatID int64, before time.Time, limit int, excludeTypes []message.Type) ([]message.Message, error)
	ChatSeen(chatID int64) (bool, error)
}

// Update is the payload published for every recomputed conversation feed.
type Update struct {
	ChatID int64
	Result Result
}

// Watcher keeps assembled feeds fresh for open conversations. It subscribes
// to message mutation events on the bus and republishes a freshly assembled
// Result for any open chat a mutation touches, so readers never observe a
// stale feed after the store changes underneath them.
type Watcher struct {
	store   Store
	bus     *bus.Bus
	ownerID int64
	window  time.Duration
	limit   int
	logger  *zap.Logger

	mu     sync.Mutex
	open   map[int64]struct{}
	cancel context.CancelFunc
}

// NewWatcher creates a feed watcher. window zero keeps the default bubble
// grouping window.
func NewWatcher(store Store, b *bus.Bus, ownerID int64, window time.Duration, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:   store,
		bus:     b,
		ownerID: ownerID,
		window:  window,
		limit:   DefaultBatchLimit,
		logger:  logger,
		open:    make(map[int64]struct{}),
	}
}

// Start subscribes to message mutation events.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	ch, unsub := w.bus.Subscribe("message.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				w.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the watcher loop.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// OpenChat marks a conversation as open and publishes its current feed.
// Opening an already open chat just refreshes it.
func (w *Watcher) OpenChat(chatID int64) {
	w.mu.Lock()
	w.open[chatID] = struct{}{}
	w.mu.Unlock()
	w.refresh(chatID)
}

// CloseChat stops tracking a conversation. Closing an unknown chat is a
// no-op.
func (w *Watcher) CloseChat(chatID int64) {
	w.mu.Lock()
	delete(w.open, chatID)
	w.mu.Unlock()
}

// Assemble computes a conversation's feed on demand, regardless of whether
// the chat is open.
func (w *Watcher) Assemble(chatID int64) (Result, error) {
	msgs, err := w.store.ListMessages(chatID, time.Time{}, w.limit, HiddenTypes)
	if err != nil {
		return Result{}, err
	}
	seen, err := w.store.ChatSeen(chatID)
	if err != nil {
		return Result{}, err
	}

	opts := []Option{WithChatSeen(seen)}
	if w.window > 0 {
		opts = append(opts, WithGroupingWindow(w.window))
	}
	asm := NewAssembler(w.ownerID, chatID, w.store, opts...)
	return asm.Assemble(msgs), nil
}

func (w *Watcher) handleEvent(evt bus.Event) {
	payload, ok := evt.Payload.(map[string]int64)
	if !ok {
		return
	}
	chatID, ok := payload["chat_id"]
	if !ok {
		return
	}

	w.mu.Lock()
	_, isOpen := w.open[chatID]
	w.mu.Unlock()
	if !isOpen {
		return
	}
	w.refresh(chatID)
}

func (w *Watcher) refresh(chatID int64) {
	result, err := w.Assemble(chatID)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("feed refresh failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return
	}
	w.bus.Publish(bus.Event{
		Kind:      bus.KindFeedUpdated,
		Timestamp: time.Now(),
		Payload:   Update{ChatID: chatID, Result: result},
	})
}
