package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/player"
	"go.uber.org/zap"
)

// AssetProber implements player.AssetLoader over HTTP. Playability is a
// HEAD probe against the episode URL; duration comes from the feed
// metadata via the durations hint, the way the podcast index reports it.
type AssetProber struct {
	http      *http.Client
	durations func(url string) int
	logger    *zap.Logger
}

// NewAssetProber creates an asset prober. durations maps an episode URL to
// its advertised duration in seconds; it may be nil.
func NewAssetProber(durations func(url string) int, logger *zap.Logger) *AssetProber {
	return &AssetProber{
		http:      &http.Client{Timeout: 15 * time.Second},
		durations: durations,
		logger:    logger,
	}
}

type probedAsset struct {
	playable bool
	duration int
}

func (a *probedAsset) Playable() bool       { return a.playable }
func (a *probedAsset) DurationSeconds() int { return a.duration }

// Load probes the URL asynchronously and invokes done exactly once.
func (p *AssetProber) Load(ctx context.Context, url string, done func(player.Asset, error)) {
	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			done(nil, err)
			return
		}
		resp, err := p.http.Do(req)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("asset probe failed", zap.String("url", url), zap.Error(err))
			}
			done(nil, err)
			return
		}
		_ = resp.Body.Close()

		duration := 0
		if p.durations != nil {
			duration = p.durations(url)
		}
		done(&probedAsset{
			playable: resp.StatusCode >= 200 && resp.StatusCode < 300,
			duration: duration,
		}, nil)
	}()
}
