package daemon

import (
	"context"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/player"
	"github.com/sphinx-chat/sphinxd/internal/remote"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"go.uber.org/zap"
)

// playbackStore bridges the playback controller to the chat_meta table.
// Failures are logged and swallowed; playback never blocks on the disk.
type playbackStore struct {
	db     *store.DB
	logger *zap.Logger
}

func (s *playbackStore) SavePlayback(data player.PodcastData) {
	err := s.db.SaveChatMeta(&store.ChatMeta{
		ChatID:        data.ChatID,
		PodcastID:     data.PodcastID,
		EpisodeID:     data.EpisodeID,
		CurrentTime:   data.CurrentTime,
		SatsPerMinute: data.SatsPerMinute,
		Speed:         data.Speed,
	})
	if err != nil {
		s.logger.Warn("failed to save playback meta", zap.Int64("chat_id", data.ChatID), zap.Error(err))
	}
}

func (s *playbackStore) LoadPlayback(chatID int64) (player.PodcastData, bool) {
	meta, err := s.db.GetChatMeta(chatID)
	if err != nil {
		s.logger.Warn("failed to load playback meta", zap.Int64("chat_id", chatID), zap.Error(err))
		return player.PodcastData{}, false
	}
	if meta == nil {
		return player.PodcastData{}, false
	}
	return player.PodcastData{
		ChatID:        meta.ChatID,
		PodcastID:     meta.PodcastID,
		EpisodeID:     meta.EpisodeID,
		CurrentTime:   meta.CurrentTime,
		SatsPerMinute: meta.SatsPerMinute,
		Speed:         meta.Speed,
	}, true
}

// playbackSync pushes playback snapshots to the relay and announces the sync
// on the bus.
type playbackSync struct {
	client *remote.Client
	bus    *bus.Bus
}

func (s *playbackSync) SyncPlayback(data player.PodcastData) {
	s.client.UpdateChatMeta(context.Background(), data.ChatID, map[string]any{
		"itemID":          data.EpisodeID,
		"sats_per_minute": data.SatsPerMinute,
		"ts":              data.CurrentTime,
		"speed":           data.Speed,
	})
	s.bus.Publish(bus.Event{
		Kind:      bus.KindChatMetaSynced,
		Timestamp: time.Now(),
		Payload:   map[string]int64{"chat_id": data.ChatID},
	})
}
