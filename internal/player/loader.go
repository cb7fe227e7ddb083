package player

import "context"

// Asset is a loaded media handle. The controller only cares about
// playability and duration; rendering the audio is someone else's problem.
type Asset interface {
	Playable() bool
	// DurationSeconds returns the probed duration, or 0 when unavailable.
	DurationSeconds() int
}

// AssetLoader probes a media URL asynchronously. done is invoked exactly
// once from an arbitrary goroutine; the controller marshals the result back
// onto its own queue.
type AssetLoader interface {
	Load(ctx context.Context, url string, done func(Asset, error))
}

// EpisodeSource lists the episodes of a podcast feed, newest first. Used by
// preloading to warm upcoming assets.
type EpisodeSource interface {
	Episodes(podcastID string) []Episode
}

// loadedItem is one warmed entry of the URL-keyed preload cache.
type loadedItem struct {
	asset  Asset
	loaded bool
}
