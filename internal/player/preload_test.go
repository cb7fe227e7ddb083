package player

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeEpisodes struct {
	episodes []Episode
}

func (f *fakeEpisodes) Episodes(podcastID string) []Episode { return f.episodes }

func TestPreloadWarmsCache(t *testing.T) {
	loader := &fakeLoader{assets: map[string]Asset{
		"https://feed/a.mp3": &fakeAsset{playable: true, duration: 100},
		"https://feed/b.mp3": &fakeAsset{playable: true, duration: 200},
	}}
	episodes := &fakeEpisodes{episodes: []Episode{
		{ID: "a", URL: "https://feed/a.mp3"},
		{ID: "b", URL: "https://feed/b.mp3"},
		{ID: "c", URL: "https://feed/c.mp3", Downloaded: true},
		{ID: "d", URL: ""},
	}}
	c := NewController(loader, episodes, nil, nil, nil, zap.NewNop())
	defer c.Close()

	c.preload(PodcastData{PodcastID: "pod-1"})
	c.State() // flush queued completions

	if got := loader.loadCount(); got != 2 {
		t.Errorf("loader called %d times, want 2 (downloaded and url-less skipped)", got)
	}

	// A second pass finds everything cached.
	c.preload(PodcastData{PodcastID: "pod-1"})
	c.State()
	if got := loader.loadCount(); got != 2 {
		t.Errorf("loader called %d times after warm cache, want 2", got)
	}
}

func TestPreloadClearsCacheWhenIdle(t *testing.T) {
	loader := &fakeLoader{assets: map[string]Asset{
		"https://feed/a.mp3": &fakeAsset{playable: true, duration: 100},
	}}
	episodes := &fakeEpisodes{episodes: []Episode{
		{ID: "a", URL: "https://feed/a.mp3"},
	}}
	c := NewController(loader, episodes, nil, nil, nil, zap.NewNop())
	defer c.Close()

	c.preload(PodcastData{PodcastID: "pod-1"})
	c.State()
	// Not playing, so the next preload starts from an empty cache.
	c.preload(PodcastData{PodcastID: "pod-1"})
	c.State()

	if got := loader.loadCount(); got != 2 {
		t.Errorf("loader called %d times, want 2 (cache cleared while idle)", got)
	}
}

func TestPreloadKeepsCacheWhilePlaying(t *testing.T) {
	loader := &fakeLoader{assets: map[string]Asset{
		"https://feed/ep1.mp3": &fakeAsset{playable: true, duration: 300},
		"https://feed/a.mp3":   &fakeAsset{playable: true, duration: 100},
	}}
	episodes := &fakeEpisodes{episodes: []Episode{
		{ID: "a", URL: "https://feed/a.mp3"},
	}}
	c := NewController(loader, episodes, nil, nil, nil, zap.NewNop())
	defer c.Close()

	c.Submit(Play(PodcastData{ChatID: 7, PodcastID: "pod-1", EpisodeID: "ep1",
		EpisodeURL: "https://feed/ep1.mp3", Speed: 1}))
	c.State()

	c.preload(PodcastData{PodcastID: "pod-1"})
	c.State()
	c.preload(PodcastData{PodcastID: "pod-1"})
	c.State()

	// ep1 plus one warm of a.mp3; the playing cache survives the second pass.
	if got := loader.loadCount(); got != 2 {
		t.Errorf("loader called %d times, want 2", got)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// Closing the controller while a probe is in flight must still free the
// preload gate; a token stranded in a dropped queue task would park every
// later probe forever.
func TestPreloadGateFreedAfterClose(t *testing.T) {
	loader := &fakeLoader{hold: true, assets: map[string]Asset{
		"https://feed/a.mp3": &fakeAsset{playable: true, duration: 100},
		"https://feed/b.mp3": &fakeAsset{playable: true, duration: 200},
	}}
	episodes := &fakeEpisodes{episodes: []Episode{
		{ID: "a", URL: "https://feed/a.mp3"},
		{ID: "b", URL: "https://feed/b.mp3"},
	}}
	c := NewController(loader, episodes, nil, nil, nil, zap.NewNop())

	go c.preload(PodcastData{PodcastID: "pod-1"})

	// The held first probe occupies the gate; the preload goroutine is
	// parked on it before the second probe.
	waitFor(t, "first probe", func() bool { return loader.loadCount() == 1 })

	c.Close()
	loader.release(0)

	// The completion freed the gate even though the queue is shut down,
	// so the parked preload reaches the second probe.
	waitFor(t, "second probe", func() bool { return loader.loadCount() == 2 })
}

func TestPreloadWithoutEpisodeSource(t *testing.T) {
	loader := &fakeLoader{assets: map[string]Asset{}}
	c := NewController(loader, nil, nil, nil, nil, zap.NewNop())
	defer c.Close()

	c.preload(PodcastData{PodcastID: "pod-1"})
	if got := loader.loadCount(); got != 0 {
		t.Errorf("loader called %d times, want 0", got)
	}
}
