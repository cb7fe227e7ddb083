package message

// Contact is a known peer on the owner's contact list.
type Contact struct {
	ID        int64
	Pubkey    string
	RouteHint string
	Alias     string
	AvatarURL string
	IsOwner   bool
}
