package player

import "context"

// play starts playback of the episode in data. Playing the episode that is
// already playing is a no-op; playing a different episode finalizes the
// current one first, so no two episodes are ever concurrently current.
func (c *Controller) play(data PodcastData) {
	if c.data != nil && c.isPlaying() {
		if data.EpisodeID == c.data.EpisodeID {
			return
		}
		c.stopTicker()
		c.saveMeta()
		c.notifyPaused()
	}

	d := data
	c.data = &d
	c.saveMeta()
	c.notifyLoading()

	url := data.EpisodeURL
	if item, ok := c.items[url]; ok && item.loaded {
		c.startPlaying(item.asset)
		return
	}

	// Capture the session at request time; a completion arriving after the
	// controller moved on is detected and discarded.
	episodeID := data.EpisodeID
	c.loader.Load(context.Background(), url, func(asset Asset, err error) {
		c.q.async(func() {
			if c.data == nil || c.data.EpisodeID != episodeID {
				return
			}
			if err != nil || asset == nil || !asset.Playable() {
				if c.logger != nil && err != nil {
					c.logger.Warn("episode asset load failed")
				}
				c.notifyError()
				return
			}
			c.items[url] = &loadedItem{asset: asset, loaded: true}
			c.startPlaying(asset)
		})
	})
}

// startPlaying transitions Loading -> Playing once the asset is ready, or
// to Error when the duration cannot be determined. No automatic retry; the
// caller must re-issue Play.
func (c *Controller) startPlaying(asset Asset) {
	c.current = asset

	duration := asset.DurationSeconds()
	c.data.Duration = duration

	if duration <= 0 {
		c.stopTicker()
		c.notifyError()
		return
	}

	if c.data.CurrentTime >= duration {
		c.data.CurrentTime = 0
	}

	c.playedSeconds = 0
	c.secondsAccrued = 0
	c.saveMeta()
	c.notifyPlaying()
	c.startTicker()
}

// pause always records position and duration back to the session object and
// the remote meta target, even when invoked redundantly.
func (c *Controller) pause(PodcastData) {
	c.stopTicker()

	if c.data == nil {
		return
	}
	if c.current != nil {
		if d := c.current.DurationSeconds(); d > 0 {
			c.data.Duration = d
		}
	}
	c.saveMeta()
	c.notifyPaused()
}

// seek moves the stored position. Stale sessions (a podcast that is no
// longer current) persist the position for next resume but never touch the
// live player. Seeking while paused notifies the paused state so a scrubber
// reflects the new position without resuming playback.
func (c *Controller) seek(data PodcastData) {
	if c.meta != nil {
		c.meta.SavePlayback(data)
	}

	if c.data == nil || c.data.PodcastID != data.PodcastID {
		return
	}

	c.data.CurrentTime = data.CurrentTime

	if c.state == Playing {
		c.startTicker()
		return
	}
	c.notifyPaused()
}

// adjustSpeed changes the playback rate. Adjustments for a session that is
// no longer current are persisted but emit no notification and leave the
// live player untouched.
func (c *Controller) adjustSpeed(data PodcastData) {
	if c.meta != nil {
		c.meta.SavePlayback(data)
	}

	if c.data == nil || c.data.PodcastID != data.PodcastID {
		return
	}

	c.data.Speed = data.Speed

	if c.state == Playing {
		c.secondsAccrued = 0
		c.startTicker()
	}
}
