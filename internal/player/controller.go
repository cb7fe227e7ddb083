package player

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Delegate receives full-snapshot playback state notifications. A given key
// registers at most one delegate; re-registering replaces it.
type Delegate interface {
	LoadingState(PodcastData)
	PlayingState(PodcastData)
	PausedState(PodcastData)
	EndedState(PodcastData)
	ErrorState(PodcastData)
}

// MetaStore is the per-conversation local scratch space for playback
// metadata, read on chat open and written on pause.
type MetaStore interface {
	SavePlayback(data PodcastData)
	LoadPlayback(chatID int64) (PodcastData, bool)
}

// MetaSync pushes playback metadata to the remote relay. Calls are best
// effort; failures never surface to the state machine.
type MetaSync interface {
	SyncPlayback(data PodcastData)
}

// Controller is the single-item playback state machine. All state mutation
// runs on an internal serial queue; public methods block until the mutation
// has completed, so observer callbacks never see torn intermediate state.
type Controller struct {
	q        *queue
	loader   AssetLoader
	episodes EpisodeSource
	meta     MetaStore
	sync     MetaSync
	payments *PaymentsHelper
	logger   *zap.Logger

	delegates map[string]Delegate

	data    *PodcastData
	state   State
	current Asset

	items map[string]*loadedItem
	gate  chan struct{}

	tickInterval time.Duration
	tickCancel   context.CancelFunc

	playedSeconds  int
	secondsAccrued float64
}

// NewController creates a playback controller. episodes and payments may be
// nil when preloading and sats streaming are not wanted.
func NewController(
	loader AssetLoader,
	episodes EpisodeSource,
	meta MetaStore,
	metaSync MetaSync,
	payments *PaymentsHelper,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		q:            newQueue(),
		loader:       loader,
		episodes:     episodes,
		meta:         meta,
		sync:         metaSync,
		payments:     payments,
		logger:       logger,
		delegates:    make(map[string]Delegate),
		items:        make(map[string]*loadedItem),
		gate:         make(chan struct{}, 1),
		tickInterval: time.Second,
	}
}

// Close stops timers and shuts down the serial queue.
func (c *Controller) Close() {
	c.q.do(func() { c.stopTicker() })
	c.q.close()
}

// AddDelegate registers an observer under a key. Registering an existing
// key replaces the previous delegate.
func (c *Controller) AddDelegate(key string, d Delegate) {
	c.q.do(func() { c.delegates[key] = d })
}

// RemoveDelegate removes the observer registered under key. Removing an
// unknown key is a no-op.
func (c *Controller) RemoveDelegate(key string) {
	c.q.do(func() { delete(c.delegates, key) })
}

// State returns the current playback state.
func (c *Controller) State() State {
	var s State
	c.q.do(func() { s = c.state })
	return s
}

// Data returns a snapshot of the current session, if any.
func (c *Controller) Data() (PodcastData, bool) {
	var (
		d  PodcastData
		ok bool
	)
	c.q.do(func() {
		if c.data != nil {
			d, ok = *c.data, true
		}
	})
	return d, ok
}

// SessionFor returns the stored playback session for a chat, used to resume
// position and speed when a conversation is reopened.
func (c *Controller) SessionFor(chatID int64) (PodcastData, bool) {
	if c.meta == nil {
		return PodcastData{}, false
	}
	return c.meta.LoadPlayback(chatID)
}

// Submit funnels a playback action through the controller. The call returns
// once the action's synchronous portion has completed on the queue.
func (c *Controller) Submit(action Action) {
	switch action.Kind {
	case ActionPreload:
		// Asset probing runs off-queue; only cache mutation is marshalled back.
		go c.preload(action.Data)
	case ActionPlay:
		c.q.do(func() { c.play(action.Data) })
	case ActionPause:
		c.q.do(func() { c.pause(action.Data) })
	case ActionSeek:
		c.q.do(func() { c.seek(action.Data) })
	case ActionAdjustSpeed:
		c.q.do(func() { c.adjustSpeed(action.Data) })
	}
}

func (c *Controller) isPlaying() bool {
	return c.state == Playing || c.state == Loading
}

// Notification fan-out. Delegates receive a snapshot copy, never the
// controller's own pointer, in registration-unordered iteration.

func (c *Controller) notifyLoading() {
	if c.data == nil {
		return
	}
	c.state = Loading
	for _, d := range c.delegates {
		d.LoadingState(*c.data)
	}
}

func (c *Controller) notifyPlaying() {
	if c.data == nil {
		return
	}
	c.state = Playing
	for _, d := range c.delegates {
		d.PlayingState(*c.data)
	}
}

func (c *Controller) notifyPaused() {
	if c.data == nil {
		return
	}
	c.state = Paused
	for _, d := range c.delegates {
		d.PausedState(*c.data)
	}
	c.syncMeta()
}

func (c *Controller) notifyEnded() {
	if c.data == nil {
		return
	}
	c.state = Ended
	for _, d := range c.delegates {
		d.EndedState(*c.data)
	}
	c.syncMeta()
}

func (c *Controller) notifyError() {
	if c.data == nil {
		return
	}
	c.state = ErrorState
	for _, d := range c.delegates {
		d.ErrorState(*c.data)
	}
}

// syncMeta pushes the session snapshot to the remote relay. Triggered on
// pause/ended only, to bound network traffic.
func (c *Controller) syncMeta() {
	if c.sync == nil || c.data == nil {
		return
	}
	c.sync.SyncPlayback(*c.data)
}

func (c *Controller) startTicker() {
	c.stopTicker()
	if c.tickInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.q.async(c.onTick)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Controller) stopTicker() {
	if c.tickCancel != nil {
		c.tickCancel()
		c.tickCancel = nil
	}
}

// onTick advances the playback position by one tick at the current rate and
// handles natural end of the episode.
func (c *Controller) onTick() {
	if c.state != Playing || c.data == nil {
		return
	}

	c.secondsAccrued += c.tickInterval.Seconds() * c.data.Speed
	advanced := int(c.secondsAccrued)
	if advanced > 0 {
		c.secondsAccrued -= float64(advanced)
		c.data.CurrentTime += advanced
		c.playedSeconds += advanced
		c.accruePayments()
	}

	if c.data.Duration > 0 && c.data.CurrentTime >= c.data.Duration {
		c.data.CurrentTime = c.data.Duration
		c.stopTicker()
		c.saveMeta()
		c.notifyEnded()
	}
}

// accruePayments streams the per-minute sats rate once per full played
// minute.
func (c *Controller) accruePayments() {
	if c.payments == nil || c.data == nil || c.data.SatsPerMinute <= 0 {
		return
	}
	for c.playedSeconds >= 60 {
		c.playedSeconds -= 60
		c.payments.StreamPayment(*c.data, c.data.SatsPerMinute)
	}
}

func (c *Controller) saveMeta() {
	if c.meta == nil || c.data == nil {
		return
	}
	c.meta.SavePlayback(*c.data)
}
