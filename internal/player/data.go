package player

// PodcastData is the playback session state for one episode. It is owned
// exclusively by the Controller and replaced wholesale when a different
// episode is requested. Observers always receive a full snapshot copy.
type PodcastData struct {
	ChatID      int64
	PodcastID   string
	EpisodeID   string
	EpisodeURL  string
	CurrentTime int
	Duration    int
	Speed       float64

	SatsPerMinute    int
	ClipSenderPubkey string
}

// Episode is one playable item of a podcast feed.
type Episode struct {
	ID         string
	URL        string
	Duration   int
	Downloaded bool
	MusicClip  bool
}

// Destination is one split of a sats stream payment.
type Destination struct {
	Address string  `json:"address"`
	Split   float64 `json:"split"`
	Type    string  `json:"type"`
}

// State is the controller's playback state.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Ended
	ErrorState
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case ErrorState:
		return "error"
	}
	return "idle"
}

// Action is a playback request funneled through Controller.Submit. The
// indirection lets new action kinds be added without changing callers.
type Action struct {
	Kind ActionKind
	Data PodcastData
}

// ActionKind enumerates the playback requests.
type ActionKind int

const (
	ActionPreload ActionKind = iota
	ActionPlay
	ActionPause
	ActionSeek
	ActionAdjustSpeed
)

// Preload warms upcoming episode assets for the given session.
func Preload(data PodcastData) Action { return Action{Kind: ActionPreload, Data: data} }

// Play starts or resumes playback of the episode in data.
func Play(data PodcastData) Action { return Action{Kind: ActionPlay, Data: data} }

// Pause pauses playback and records the current position.
func Pause(data PodcastData) Action { return Action{Kind: ActionPause, Data: data} }

// Seek moves the playback position to data.CurrentTime.
func Seek(data PodcastData) Action { return Action{Kind: ActionSeek, Data: data} }

// AdjustSpeed changes the playback rate to data.Speed.
func AdjustSpeed(data PodcastData) Action { return Action{Kind: ActionAdjustSpeed, Data: data} }
