package player

import (
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeStreamer struct {
	mu     sync.Mutex
	params []StreamParams
}

func (s *fakeStreamer) StreamSats(params StreamParams) error {
	s.mu.Lock()
	s.params = append(s.params, params)
	s.mu.Unlock()
	return nil
}

func (s *fakeStreamer) last(t *testing.T) StreamParams {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.params) == 0 {
		t.Fatal("no sats streamed")
	}
	return s.params[len(s.params)-1]
}

type fakeDestinations struct {
	destinations []Destination
	suggested    int
}

func (d *fakeDestinations) Destinations(podcastID string) []Destination { return d.destinations }
func (d *fakeDestinations) SuggestedSats(podcastID string) int          { return d.suggested }

const ownerPubkey = "owner-pubkey"

func paymentsFixture(dests *fakeDestinations) (*PaymentsHelper, *fakeStreamer) {
	streamer := &fakeStreamer{}
	return NewPaymentsHelper(streamer, dests, ownerPubkey, zap.NewNop()), streamer
}

func TestStreamPayment(t *testing.T) {
	h, streamer := paymentsFixture(&fakeDestinations{
		destinations: []Destination{{Address: "node-a", Split: 100, Type: "node"}},
	})

	data := PodcastData{ChatID: 7, PodcastID: "f1", EpisodeID: "e1", CurrentTime: 93}
	h.StreamPayment(data, 10)

	got := streamer.last(t)
	if got.ChatID != 7 || got.Amount != 10 || !got.UpdateMeta {
		t.Errorf("params = %+v", got)
	}

	var payload struct {
		FeedID string `json:"feedID"`
		ItemID string `json:"itemID"`
		Ts     int    `json:"ts"`
	}
	if err := json.Unmarshal([]byte(got.Text), &payload); err != nil {
		t.Fatalf("text is not a clip payload: %v", err)
	}
	if payload.FeedID != "f1" || payload.ItemID != "e1" || payload.Ts != 93 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestStreamPaymentSuggestedFallback(t *testing.T) {
	h, streamer := paymentsFixture(&fakeDestinations{
		destinations: []Destination{{Address: "node-a", Split: 100}},
		suggested:    12,
	})
	h.StreamPayment(PodcastData{PodcastID: "f1"}, 0)
	if got := streamer.last(t).Amount; got != 12 {
		t.Errorf("amount = %d, want suggested 12", got)
	}

	h, streamer = paymentsFixture(&fakeDestinations{
		destinations: []Destination{{Address: "node-a", Split: 100}},
	})
	h.StreamPayment(PodcastData{PodcastID: "f1"}, 0)
	if got := streamer.last(t).Amount; got != 5 {
		t.Errorf("amount = %d, want default 5", got)
	}
}

func TestStreamPaymentClipSenderSplit(t *testing.T) {
	h, streamer := paymentsFixture(&fakeDestinations{
		destinations: []Destination{{Address: "node-a", Split: 100}},
	})

	data := PodcastData{PodcastID: "f1", ClipSenderPubkey: "clip-sender"}
	h.StreamPayment(data, 10)

	got := streamer.last(t)
	if got.UpdateMeta {
		t.Error("clip-sender payments must not update remote meta")
	}
	last := got.Destinations[len(got.Destinations)-1]
	if last.Address != "clip-sender" || last.Split != 1 || last.Type != "node" {
		t.Errorf("clip sender destination = %+v", last)
	}

	// A clip we sent ourselves gets no extra split.
	h, streamer = paymentsFixture(&fakeDestinations{
		destinations: []Destination{{Address: "node-a", Split: 100}},
	})
	data.ClipSenderPubkey = ownerPubkey
	h.StreamPayment(data, 10)
	got = streamer.last(t)
	if len(got.Destinations) != 1 || !got.UpdateMeta {
		t.Errorf("params = %+v, want single destination with meta update", got)
	}
}

func TestStreamPaymentNoDestinations(t *testing.T) {
	h, streamer := paymentsFixture(&fakeDestinations{})
	h.StreamPayment(PodcastData{PodcastID: "f1"}, 10)
	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	if len(streamer.params) != 0 {
		t.Errorf("streamed %d payments with no destinations, want 0", len(streamer.params))
	}
}

func TestBoostNeverUpdatesMeta(t *testing.T) {
	h, streamer := paymentsFixture(&fakeDestinations{
		destinations: []Destination{{Address: "node-a", Split: 100}},
	})
	h.Boost(PodcastData{PodcastID: "f1"}, 100, "boost-uuid")

	got := streamer.last(t)
	if got.UpdateMeta {
		t.Error("boosts must not update remote meta")
	}
	var payload struct {
		UUID string `json:"uuid"`
	}
	_ = json.Unmarshal([]byte(got.Text), &payload)
	if payload.UUID != "boost-uuid" {
		t.Errorf("payload uuid = %q, want boost-uuid", payload.UUID)
	}
}

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		sats  float64
		split float64
		want  int
	}{
		{100, 50, 50},
		{100, 1, 1},
		{10, 1, 1}, // rounds to 0, floored to 1
		{33, 33, 11},
	}
	for _, tt := range tests {
		if got := SplitAmount(tt.sats, tt.split); got != tt.want {
			t.Errorf("SplitAmount(%v, %v) = %d, want %d", tt.sats, tt.split, got, tt.want)
		}
	}
}

func TestClipSenderAmount(t *testing.T) {
	if got := ClipSenderAmount(1000); got != 10 {
		t.Errorf("ClipSenderAmount(1000) = %d, want 10", got)
	}
	if got := ClipSenderAmount(10); got != 1 {
		t.Errorf("ClipSenderAmount(10) = %d, want 1 (floor)", got)
	}
}
