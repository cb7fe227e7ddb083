package player

import (
	"encoding/json"
	"math"

	"go.uber.org/zap"
)

// StreamParams is one sats stream request against the relay.
type StreamParams struct {
	ChatID       int64         `json:"chat_id"`
	Amount       int           `json:"amount"`
	Destinations []Destination `json:"destinations"`
	UpdateMeta   bool          `json:"update_meta"`
	Text         string        `json:"text"`
}

// SatsStreamer sends micro-payments to a destination split list. Failures
// are best effort and swallowed by the helper.
type SatsStreamer interface {
	StreamSats(params StreamParams) error
}

// DestinationSource provides the payment split list and the feed's
// suggested per-minute rate.
type DestinationSource interface {
	Destinations(podcastID string) []Destination
	SuggestedSats(podcastID string) int
}

// clipPayload is the free-form text payload attached to a sats stream,
// keyed by feed id + item id + timestamp.
type clipPayload struct {
	FeedID string `json:"feedID"`
	ItemID string `json:"itemID"`
	Ts     int    `json:"ts"`
	UUID   string `json:"uuid,omitempty"`
}

// PaymentsHelper streams sats for podcast playback and boosts.
type PaymentsHelper struct {
	streamer     SatsStreamer
	destinations DestinationSource
	ownerPubkey  string
	logger       *zap.Logger
}

// NewPaymentsHelper creates a payments helper. ownerPubkey identifies the
// local node so clip-sender splits are not paid back to ourselves.
func NewPaymentsHelper(streamer SatsStreamer, destinations DestinationSource, ownerPubkey string, logger *zap.Logger) *PaymentsHelper {
	return &PaymentsHelper{
		streamer:     streamer,
		destinations: destinations,
		ownerPubkey:  ownerPubkey,
		logger:       logger,
	}
}

// StreamPayment streams amount sats for the playing session. amount <= 0
// falls back to the feed's suggested rate.
func (h *PaymentsHelper) StreamPayment(data PodcastData, amount int) {
	h.process(data, amount, "", true)
}

// Boost sends a one-off boost payment attached to a clip timestamp.
// Boosts never update remote metadata.
func (h *PaymentsHelper) Boost(data PodcastData, amount int, uuid string) {
	h.process(data, amount, uuid, false)
}

func (h *PaymentsHelper) process(data PodcastData, amount int, uuid string, updateMeta bool) {
	if h.streamer == nil || h.destinations == nil {
		return
	}

	if amount <= 0 {
		amount = h.SuggestedAmount(data.PodcastID)
	}

	destinations := h.destinations.Destinations(data.PodcastID)

	if data.ClipSenderPubkey != "" && data.ClipSenderPubkey != h.ownerPubkey {
		updateMeta = false
		destinations = append(destinations, Destination{
			Address: data.ClipSenderPubkey,
			Split:   1,
			Type:    "node",
		})
	}

	if len(destinations) == 0 {
		return
	}

	text, _ := json.Marshal(clipPayload{
		FeedID: data.PodcastID,
		ItemID: data.EpisodeID,
		Ts:     data.CurrentTime,
		UUID:   uuid,
	})

	err := h.streamer.StreamSats(StreamParams{
		ChatID:       data.ChatID,
		Amount:       amount,
		Destinations: destinations,
		UpdateMeta:   updateMeta,
		Text:         string(text),
	})
	if err != nil && h.logger != nil {
		h.logger.Warn("sats stream failed", zap.Error(err))
	}
}

// SuggestedAmount returns the feed's suggested sats rate, defaulting to 5.
func (h *PaymentsHelper) SuggestedAmount(podcastID string) int {
	if h.destinations != nil {
		if sats := h.destinations.SuggestedSats(podcastID); sats > 0 {
			return sats
		}
	}
	return 5
}

// SplitAmount computes one destination's share of a sats total. Every
// destination receives at least 1 sat.
func SplitAmount(sats float64, split float64) int {
	amount := int(math.Round(sats * (split / 100)))
	if amount < 1 {
		return 1
	}
	return amount
}

// ClipSenderAmount computes the 1% share paid to a clip's sender.
func ClipSenderAmount(sats float64) int {
	amount := int(math.Round(sats * 0.01))
	if amount < 1 {
		return 1
	}
	return amount
}
