package store

import (
	"database/sql"
	"time"
)

// ChatMeta is the per-conversation playback scratch space, read on chat
// open and written on pause.
type ChatMeta struct {
	ChatID        int64
	PodcastID     string
	EpisodeID     string
	CurrentTime   int
	SatsPerMinute int
	Speed         float64
}

// SaveChatMeta writes the playback scratch space for a chat.
func (db *DB) SaveChatMeta(meta *ChatMeta) error {
	_, err := db.Exec(`
		INSERT INTO chat_meta (chat_id, podcast_id, episode_id, current_time_secs, sats_per_minute, speed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			podcast_id = excluded.podcast_id,
			episode_id = excluded.episode_id,
			current_time_secs = excluded.current_time_secs,
			sats_per_minute = excluded.sats_per_minute,
			speed = excluded.speed,
			updated_at = excluded.updated_at`,
		meta.ChatID, meta.PodcastID, meta.EpisodeID, meta.CurrentTime,
		meta.SatsPerMinute, meta.Speed, time.Now().UnixMilli())
	return err
}

// GetChatMeta returns the playback scratch space for a chat, or nil.
func (db *DB) GetChatMeta(chatID int64) (*ChatMeta, error) {
	var m ChatMeta
	err := db.QueryRow(`
		SELECT chat_id, podcast_id, episode_id, current_time_secs, sats_per_minute, speed
		FROM chat_meta WHERE chat_id = ?`, chatID).
		Scan(&m.ChatID, &m.PodcastID, &m.EpisodeID, &m.CurrentTime, &m.SatsPerMinute, &m.Speed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
