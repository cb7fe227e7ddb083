package message

import "testing"

const testPubkey = "02bc07e10db1e73a36ce4c19314096f5a4bd72d103171977a6c2ef05e5c06e3a7d"

func TestFirstPubkeyLink(t *testing.T) {
	pubkey, hint, ok := FirstPubkeyLink("add me: " + testPubkey)
	if !ok || pubkey != testPubkey || hint != "" {
		t.Errorf("got %q %q %v", pubkey, hint, ok)
	}

	withHint := testPubkey + ":" + testPubkey + ":12345"
	pubkey, hint, ok = FirstPubkeyLink(withHint)
	if !ok || pubkey != testPubkey || hint != testPubkey+":12345" {
		t.Errorf("got %q %q %v", pubkey, hint, ok)
	}

	if _, _, ok := FirstPubkeyLink("no keys here"); ok {
		t.Error("plain text should not match")
	}
	// 64 hex chars is a payment hash, not a pubkey.
	if _, _, ok := FirstPubkeyLink(testPubkey[:64]); ok {
		t.Error("64-char hex should not match")
	}
}

func TestFirstTribeLink(t *testing.T) {
	link, ok := FirstTribeLink("join https://tribes.sphinx.chat/tribes/abc now")
	if !ok || link != "https://tribes.sphinx.chat/tribes/abc" {
		t.Errorf("got %q %v", link, ok)
	}
	if _, ok := FirstTribeLink("https://example.com/tribes/abc"); ok {
		t.Error("non-sphinx host should not match")
	}
}

func TestFirstWebLink(t *testing.T) {
	link, ok := FirstWebLink("read https://example.com/a then https://example.com/b")
	if !ok || link != "https://example.com/a" {
		t.Errorf("got %q %v", link, ok)
	}

	// Tribe links resolve through the tribe map, not as web links.
	link, ok = FirstWebLink("https://tribes.sphinx.chat/tribes/abc and https://example.com")
	if !ok || link != "https://example.com" {
		t.Errorf("got %q %v, want the non-tribe link", link, ok)
	}

	if _, ok := FirstWebLink("no links"); ok {
		t.Error("plain text should not match")
	}
}
