package player

import "context"

// preload warms the asset cache for a podcast's episodes. Probes are gated
// to one in flight at a time; this is a resource-contention control, not a
// correctness requirement. Already-cached and fully-downloaded episodes are
// skipped without touching the network.
func (c *Controller) preload(data PodcastData) {
	if c.episodes == nil || c.loader == nil {
		return
	}

	// Release previously warmed assets when nothing is playing.
	c.q.do(func() {
		if !c.isPlaying() {
			c.items = make(map[string]*loadedItem)
		}
	})

	for _, episode := range c.episodes.Episodes(data.PodcastID) {
		if episode.URL == "" || episode.Downloaded {
			continue
		}

		url := episode.URL
		var cached bool
		c.q.do(func() {
			_, cached = c.items[url]
		})
		if cached {
			continue
		}

		c.gate <- struct{}{}

		c.loader.Load(context.Background(), url, func(asset Asset, err error) {
			// Free the gate before queueing: the queue drops async tasks
			// after shutdown, and a token stranded there would block every
			// later preload forever.
			<-c.gate
			c.q.async(func() {
				if err == nil && asset != nil {
					c.items[url] = &loadedItem{asset: asset, loaded: asset.Playable()}
				}
			})
		})
	}
}
