package feed

import (
	"net/url"
	"strings"

	"github.com/sphinx-chat/sphinxd/internal/message"
)

// Lookup is the batch query surface the assembler needs from the message
// store. Every method takes a set and is called at most once per Assemble;
// the assembler never issues per-message lookups.
type Lookup interface {
	// MessagesByUUIDs resolves reply targets.
	MessagesByUUIDs(uuids []string) ([]message.Message, error)
	// BoostsByReplyUUIDs returns boost reactions on the given messages.
	BoostsByReplyUUIDs(chatID int64, uuids []string) ([]message.Message, error)
	// PurchaseItemsByMUIDs returns purchase request/accept/deny messages for
	// the given media identifiers.
	PurchaseItemsByMUIDs(chatID int64, muids []string) ([]message.Message, error)
	// ContactsByPubkeys resolves known contacts for pubkey links.
	ContactsByPubkeys(pubkeys []string) ([]message.Contact, error)
	// JoinedTribeUUIDs reports which of the given tribe UUIDs the owner has
	// already joined.
	JoinedTribeUUIDs(uuids []string) (map[string]bool, error)
}

func buildReplyMap(lookup Lookup, msgs []message.Message) map[string]message.Message {
	var uuids []string
	for i := range msgs {
		if msgs[i].ReplyUUID != "" {
			uuids = append(uuids, msgs[i].ReplyUUID)
		}
	}
	replyMap := make(map[string]message.Message)
	if len(uuids) == 0 {
		return replyMap
	}
	targets, err := lookup.MessagesByUUIDs(uuids)
	if err != nil {
		// Resolution miss degrades to "no reply shown".
		return replyMap
	}
	for _, t := range targets {
		if t.UUID != "" {
			replyMap[t.UUID] = t
		}
	}
	return replyMap
}

func buildBoostMap(lookup Lookup, chatID int64, msgs []message.Message) map[string][]message.Message {
	var uuids []string
	for i := range msgs {
		if msgs[i].UUID != "" {
			uuids = append(uuids, msgs[i].UUID)
		}
	}
	boostMap := make(map[string][]message.Message)
	if len(uuids) == 0 {
		return boostMap
	}
	boosts, err := lookup.BoostsByReplyUUIDs(chatID, uuids)
	if err != nil {
		return boostMap
	}
	for _, b := range boosts {
		if b.ReplyUUID != "" {
			boostMap[b.ReplyUUID] = append(boostMap[b.ReplyUUID], b)
		}
	}
	return boostMap
}

func buildPurchaseMap(lookup Lookup, chatID int64, msgs []message.Message) map[string]map[message.Type]message.Message {
	var muids []string
	for i := range msgs {
		if muid := msgs[i].MUID(); muid != "" {
			muids = append(muids, muid)
		}
	}
	purchaseMap := make(map[string]map[message.Type]message.Message)
	if len(muids) == 0 {
		return purchaseMap
	}
	items, err := lookup.PurchaseItemsByMUIDs(chatID, muids)
	if err != nil {
		return purchaseMap
	}
	for _, item := range items {
		muid := item.MUID()
		if muid == "" {
			continue
		}
		if purchaseMap[muid] == nil {
			purchaseMap[muid] = make(map[message.Type]message.Message)
		}
		// A single attachment carries at most one of each sub-type.
		purchaseMap[muid][item.Type] = item
	}
	return purchaseMap
}

func buildLinkContactMap(lookup Lookup, msgs []message.Message) map[int64]*LinkContact {
	type pubkeyRef struct {
		pubkey    string
		routeHint string
	}
	refs := make(map[int64]pubkeyRef)
	var pubkeys []string
	for i := range msgs {
		if pubkey, hint, ok := message.FirstPubkeyLink(msgs[i].Content); ok {
			refs[msgs[i].ID] = pubkeyRef{pubkey: pubkey, routeHint: hint}
			pubkeys = append(pubkeys, pubkey)
		}
	}
	linkMap := make(map[int64]*LinkContact)
	if len(refs) == 0 {
		return linkMap
	}
	contacts, _ := lookup.ContactsByPubkeys(pubkeys)
	byPubkey := make(map[string]*message.Contact)
	for i := range contacts {
		byPubkey[contacts[i].Pubkey] = &contacts[i]
	}
	for id, ref := range refs {
		linkMap[id] = &LinkContact{
			Pubkey:    ref.pubkey,
			RouteHint: ref.routeHint,
			Contact:   byPubkey[ref.pubkey],
		}
	}
	return linkMap
}

func buildLinkTribeMap(lookup Lookup, msgs []message.Message) map[int64]*LinkTribe {
	type tribeRef struct {
		link string
		uuid string
	}
	refs := make(map[int64]tribeRef)
	var uuids []string
	for i := range msgs {
		link, ok := message.FirstTribeLink(msgs[i].Content)
		if !ok {
			continue
		}
		uuid := tribeUUIDFromLink(link)
		if uuid == "" {
			continue
		}
		refs[msgs[i].ID] = tribeRef{link: link, uuid: uuid}
		uuids = append(uuids, uuid)
	}
	linkMap := make(map[int64]*LinkTribe)
	if len(refs) == 0 {
		return linkMap
	}
	joined, err := lookup.JoinedTribeUUIDs(uuids)
	if err != nil {
		joined = map[string]bool{}
	}
	for id, ref := range refs {
		linkMap[id] = &LinkTribe{
			Link:     ref.link,
			UUID:     ref.uuid,
			IsJoined: joined[ref.uuid],
		}
	}
	return linkMap
}

// tribeUUIDFromLink extracts the tribe UUID from a join link, either from
// the uuid query parameter or the trailing path segment.
func tribeUUIDFromLink(link string) string {
	raw := link
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if uuid := u.Query().Get("uuid"); uuid != "" {
		return uuid
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 1 && parts[len(parts)-2] == "tribes" {
		return parts[len(parts)-1]
	}
	return ""
}
