package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/player"
	"go.uber.org/zap"
)

// DefaultDirectoryURL is the public tribes directory serving podcast feed
// metadata.
const DefaultDirectoryURL = "https://tribes.sphinx.chat"

// FeedDirectory fetches and caches podcast feed metadata from the tribes
// directory: episode lists for preloading, value splits for sats streaming
// and advertised episode durations. A feed is fetched at most once per
// directory instance; directory misses degrade to empty results.
type FeedDirectory struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	feeds map[string]*feedInfo
}

type feedInfo struct {
	episodes     []player.Episode
	destinations []player.Destination
	suggested    int
	durations    map[string]int
}

// NewFeedDirectory creates a feed directory client. baseURL empty uses the
// public tribes directory.
func NewFeedDirectory(baseURL string, logger *zap.Logger) *FeedDirectory {
	if baseURL == "" {
		baseURL = DefaultDirectoryURL
	}
	return &FeedDirectory{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		feeds:   make(map[string]*feedInfo),
	}
}

// Episodes lists a feed's episodes, newest first.
func (d *FeedDirectory) Episodes(podcastID string) []player.Episode {
	if info := d.feed(podcastID); info != nil {
		return info.episodes
	}
	return nil
}

// Destinations returns the feed's value split list.
func (d *FeedDirectory) Destinations(podcastID string) []player.Destination {
	if info := d.feed(podcastID); info != nil {
		return info.destinations
	}
	return nil
}

// SuggestedSats returns the feed's suggested per-minute streaming rate, or 0
// when the feed carries none.
func (d *FeedDirectory) SuggestedSats(podcastID string) int {
	if info := d.feed(podcastID); info != nil {
		return info.suggested
	}
	return 0
}

// DurationHint returns the advertised duration in seconds for an episode
// URL seen in any fetched feed, or 0.
func (d *FeedDirectory) DurationHint(episodeURL string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, info := range d.feeds {
		if secs, ok := info.durations[episodeURL]; ok {
			return secs
		}
	}
	return 0
}

func (d *FeedDirectory) feed(podcastID string) *feedInfo {
	if podcastID == "" {
		return nil
	}

	d.mu.RLock()
	info, ok := d.feeds[podcastID]
	d.mu.RUnlock()
	if ok {
		return info
	}

	info, err := d.fetch(podcastID)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("podcast feed fetch failed", zap.String("podcast_id", podcastID), zap.Error(err))
		}
		return nil
	}

	d.mu.Lock()
	d.feeds[podcastID] = info
	d.mu.Unlock()
	return info
}

// podcastResponse mirrors the tribes directory podcast document.
type podcastResponse struct {
	Episodes []struct {
		ID           json.Number `json:"id"`
		Title        string      `json:"title"`
		EnclosureURL string      `json:"enclosureUrl"`
		Duration     int         `json:"duration"`
	} `json:"episodes"`
	Value struct {
		Model struct {
			// Suggested is the per-minute rate in BTC.
			Suggested float64 `json:"suggested"`
		} `json:"model"`
		Destinations []struct {
			Address string  `json:"address"`
			Split   float64 `json:"split"`
			Type    string  `json:"type"`
		} `json:"destinations"`
	} `json:"value"`
}

func (d *FeedDirectory) fetch(podcastID string) (*feedInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	endpoint := d.baseURL + "/podcast?id=" + url.QueryEscape(podcastID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("directory returned HTTP %d", resp.StatusCode)
	}

	var doc podcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode podcast document: %w", err)
	}

	info := &feedInfo{durations: make(map[string]int)}
	for _, ep := range doc.Episodes {
		info.episodes = append(info.episodes, player.Episode{
			ID:       ep.ID.String(),
			URL:      ep.EnclosureURL,
			Duration: ep.Duration,
		})
		if ep.EnclosureURL != "" {
			info.durations[ep.EnclosureURL] = ep.Duration
		}
	}
	for _, dest := range doc.Value.Destinations {
		info.destinations = append(info.destinations, player.Destination{
			Address: dest.Address,
			Split:   dest.Split,
			Type:    dest.Type,
		})
	}
	// The directory quotes the suggested rate in BTC.
	info.suggested = int(math.Round(doc.Value.Model.Suggested * 1e8))
	return info, nil
}
