package message

import (
	"encoding/json"
	"strings"
)

const (
	clipPrefix  = "clip::"
	boostPrefix = "boost::"
)

// ClipPayload is the JSON body embedded in podcast clip comments and boosts.
type ClipPayload struct {
	FeedID  FlexID `json:"feedID"`
	ItemID  FlexID `json:"itemID"`
	Ts      int    `json:"ts"`
	Amount  int64  `json:"amount"`
	UUID    string `json:"uuid"`
	Pubkey  string `json:"pubkey"`
	Text    string `json:"text"`
}

// FlexID tolerates feed/item identifiers encoded as either JSON strings or
// numbers; older relays sent numeric ids.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// HasClipPrefix reports whether content embeds a clip payload.
func HasClipPrefix(content string) bool {
	return strings.HasPrefix(content, clipPrefix)
}

// HasBoostPrefix reports whether content embeds a boost payload.
func HasBoostPrefix(content string) bool {
	return strings.HasPrefix(content, boostPrefix)
}

// ParseClipPayload decodes the clip/boost JSON embedded in message content.
// The prefix is optional so raw payloads parse too. Malformed JSON returns
// (nil, false); the caller degrades to showing raw content.
func ParseClipPayload(content string) (*ClipPayload, bool) {
	body := content
	if i := strings.Index(body, "::"); i >= 0 {
		body = body[i+2:]
	}
	var p ClipPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, false
	}
	return &p, true
}

// TimestampOf extracts the clip timestamp in seconds from an embedded
// payload, or (0, false) when the payload cannot be decoded.
func TimestampOf(content string) (int, bool) {
	p, ok := ParseClipPayload(content)
	if !ok {
		return 0, false
	}
	return p.Ts, true
}
