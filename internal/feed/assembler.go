package feed

import (
	"sort"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/message"
)

// DefaultGroupingWindow is the maximum gap between a message and its run's
// anchor timestamp for the message to join the run.
const DefaultGroupingWindow = 5 * time.Minute

// Assembler computes per-message presentation state for one conversation.
// It is a pure, synchronous computation over a provided batch; callers
// re-invoke it after the underlying store mutates.
type Assembler struct {
	ownerID        int64
	chatID         int64
	chatSeen       bool
	lookup         Lookup
	groupingWindow time.Duration
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithGroupingWindow overrides the bubble grouping time window.
func WithGroupingWindow(d time.Duration) Option {
	return func(a *Assembler) {
		if d > 0 {
			a.groupingWindow = d
		}
	}
}

// WithChatSeen marks the conversation itself as already seen, which
// suppresses new-message counting.
func WithChatSeen(seen bool) Option {
	return func(a *Assembler) { a.chatSeen = seen }
}

// NewAssembler creates an assembler for one conversation. The lookup is the
// batch query surface of the message store; it is consulted once per map
// type per Assemble call.
func NewAssembler(ownerID, chatID int64, lookup Lookup, opts ...Option) *Assembler {
	a := &Assembler{
		ownerID:        ownerID,
		chatID:         chatID,
		lookup:         lookup,
		groupingWindow: DefaultGroupingWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble computes the presentation state for a batch of messages. Input
// order does not matter; the batch is sorted chronologically (date, then id
// for ties) before processing and the result is oldest first.
func (a *Assembler) Assemble(msgs []message.Message) Result {
	batch := make([]message.Message, len(msgs))
	copy(batch, msgs)
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].Date.Equal(batch[j].Date) {
			return batch[i].Date.Before(batch[j].Date)
		}
		return batch[i].ID < batch[j].ID
	})

	replyMap := buildReplyMap(a.lookup, batch)
	boostMap := buildBoostMap(a.lookup, a.chatID, batch)
	purchaseMap := buildPurchaseMap(a.lookup, a.chatID, batch)
	linkContacts := buildLinkContactMap(a.lookup, batch)
	linkTribes := buildLinkTribeMap(a.lookup, batch)
	invoiceFlags := a.foldInvoiceBalance(batch)

	result := Result{Cells: make([]CellState, 0, len(batch))}

	var anchor time.Time
	var haveAnchor bool

	for i := range batch {
		msg := &batch[i]

		var prev, next *message.Message
		if i > 0 {
			prev = &batch[i-1]
		}
		if i < len(batch)-1 {
			next = &batch[i+1]
		}

		cell := CellState{
			Message: *msg,
			Bubble:  a.bubbleState(msg, prev, next, &anchor, &haveAnchor),
			Invoice: invoiceFlags[i],
		}

		if sep := separatorDate(msg, prev); sep != nil {
			cell.SeparatorDate = sep
		}

		if msg.ReplyUUID != "" {
			if target, ok := replyMap[msg.ReplyUUID]; ok {
				t := target
				cell.ReplyingTo = &t
			}
		}
		if msg.UUID != "" {
			cell.Boosts = boostMap[msg.UUID]
		}
		if muid := msg.MUID(); muid != "" {
			cell.Purchases = purchaseMap[muid]
		}
		cell.LinkContact = linkContacts[msg.ID]
		cell.LinkTribe = linkTribes[msg.ID]
		if cell.LinkContact == nil && cell.LinkTribe == nil {
			if link, ok := message.FirstWebLink(msg.Content); ok {
				cell.LinkWeb = &LinkWeb{Link: link}
			}
		}

		if msg.IsIncoming(a.ownerID) && !msg.Seen && !a.chatSeen {
			cell.NewMessage = true
			result.NewMessageCount++
			if msg.Push {
				result.MentionCount++
			}
		}

		result.Cells = append(result.Cells, cell)
	}

	return result
}

// bubbleState classifies one message against its chronological neighbors.
// The anchor timestamp carries forward through a run so gaps cannot
// accumulate across many short hops: the grouping window is always measured
// from the run's anchor, not from the raw previous message.
func (a *Assembler) bubbleState(
	msg, prev, next *message.Message,
	anchor *time.Time,
	haveAnchor *bool,
) BubbleState {
	if msg.IsDeleted() || msg.IsGroupAction() {
		*haveAnchor = false
		return BubbleNone
	}
	if msg.IsPayment() {
		*haveAnchor = false
		return BubbleEmpty
	}
	if msg.IsInvoice() && !msg.IsPaid() && !msg.IsExpired() {
		*haveAnchor = false
		return BubbleEmpty
	}

	date := msg.Date
	if *haveAnchor {
		date = *anchor
	}

	avoidWithPrev := prev == nil || prev.AvoidsGrouping() || msg.AvoidsGrouping()
	groupedWithPrev := !avoidWithPrev &&
		msg.SameSenderAs(prev) &&
		withinWindow(msg.Date, date, a.groupingWindow)

	if !groupedWithPrev {
		date = msg.Date
	}

	avoidWithNext := next == nil || next.AvoidsGrouping() || msg.AvoidsGrouping()
	groupedWithNext := !avoidWithNext &&
		msg.SameSenderAs(next) &&
		next != nil && withinWindow(next.Date, date, a.groupingWindow)

	*anchor = date
	*haveAnchor = true

	switch {
	case groupedWithPrev && groupedWithNext:
		return BubbleMiddle
	case groupedWithPrev:
		return BubbleLast
	case groupedWithNext:
		return BubbleFirst
	}
	return BubbleIsolated
}

func withinWindow(t, anchor time.Time, window time.Duration) bool {
	d := t.Sub(anchor)
	if d < 0 {
		d = -d
	}
	return d < window
}

// separatorDate returns the message's date when it opens a new calendar day,
// which happens on the oldest message of the batch and on every day boundary.
func separatorDate(msg, prev *message.Message) *time.Time {
	if prev != nil && sameCalendarDay(prev.Date, msg.Date) {
		return nil
	}
	d := msg.Date
	return &d
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// foldInvoiceBalance threads a running pending invoice/payment counter
// through the batch so each cell can show whether an unresolved invoice is
// outstanding without re-scanning history. The fold runs newest to oldest
// and is order-dependent: a payment cancels pending state for itself and
// everything older, a settled invoice opens pending state for everything
// older than it.
func (a *Assembler) foldInvoiceBalance(batch []message.Message) []InvoiceData {
	flags := make([]InvoiceData, len(batch))
	incoming, outgoing := 0, 0

	for i := len(batch) - 1; i >= 0; i-- {
		msg := &batch[i]

		if msg.IsPayment() {
			if msg.IsIncoming(a.ownerID) {
				incoming--
			} else {
				outgoing--
			}
		}

		flags[i] = InvoiceData{
			PendingIncoming: incoming > 0,
			PendingOutgoing: outgoing > 0,
		}

		if msg.IsInvoice() && msg.IsPaid() {
			if msg.IsOutgoing(a.ownerID) {
				incoming++
			} else {
				outgoing++
			}
		}
	}
	return flags
}
