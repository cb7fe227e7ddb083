package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/player"
	"go.uber.org/zap"
)

func probe(t *testing.T, p *AssetProber, url string) (player.Asset, error) {
	t.Helper()
	type result struct {
		asset player.Asset
		err   error
	}
	ch := make(chan result, 1)
	p.Load(context.Background(), url, func(asset player.Asset, err error) {
		ch <- result{asset, err}
	})
	select {
	case r := <-ch:
		return r.asset, r.err
	case <-time.After(5 * time.Second):
		t.Fatal("probe never completed")
		return nil, nil
	}
}

func TestProbePlayable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
	}))
	defer srv.Close()

	p := NewAssetProber(func(url string) int { return 300 }, zap.NewNop())
	asset, err := probe(t, p, srv.URL+"/ep.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if !asset.Playable() || asset.DurationSeconds() != 300 {
		t.Errorf("playable = %v duration = %d, want true/300", asset.Playable(), asset.DurationSeconds())
	}
}

func TestProbeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewAssetProber(nil, zap.NewNop())
	asset, err := probe(t, p, srv.URL+"/missing.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if asset.Playable() {
		t.Error("404 asset reported playable")
	}
}

func TestProbeNetworkError(t *testing.T) {
	p := NewAssetProber(nil, zap.NewNop())
	_, err := probe(t, p, "http://127.0.0.1:1/unreachable.mp3")
	if err == nil {
		t.Error("expected error for unreachable host")
	}
}
