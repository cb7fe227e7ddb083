package message

import (
	"regexp"
	"strings"
)

var (
	pubkeyRe = regexp.MustCompile(`\b[0-9a-fA-F]{66}(:[0-9a-fA-F]{66}:[0-9]+)?\b`)
	tribeRe  = regexp.MustCompile(`(https?://)?[^\s]*sphinx\.chat/tribes[^\s]*`)
	webRe    = regexp.MustCompile(`https?://[^\s]+`)
)

// FirstPubkeyLink returns the first Lightning public key embedded in the
// content, split into pubkey and optional route hint.
func FirstPubkeyLink(content string) (pubkey, routeHint string, ok bool) {
	match := pubkeyRe.FindString(content)
	if match == "" {
		return "", "", false
	}
	if i := strings.Index(match, ":"); i >= 0 {
		return match[:i], match[i+1:], true
	}
	return match, "", true
}

// FirstTribeLink returns the first tribe join link in the content.
func FirstTribeLink(content string) (string, bool) {
	match := tribeRe.FindString(content)
	return match, match != ""
}

// FirstWebLink returns the first web URL in the content. Tribe links are
// excluded; they resolve through the tribe map instead.
func FirstWebLink(content string) (string, bool) {
	for _, match := range webRe.FindAllString(content, -1) {
		if !tribeRe.MatchString(match) {
			return match, true
		}
	}
	return "", false
}
