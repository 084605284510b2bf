package remoteapi

// RoomOpt is one name/value pair in the opts list passed to
// createRoomWithOpts (§4.3).
type RoomOpt struct {
	Name  string
	Value string
}

// Affiliation is a single entry returned by getRoomAffiliations
// (§4.3): a bare JID and its affiliation string.
type Affiliation struct {
	JID         string
	Affiliation string
}

// RosterItem is a single entry of a user's roster, as returned by
// getRoster and as written by addRosteritem (§4.3).
type RosterItem struct {
	JID          string
	Nick         string
	Groups       []string
	Subscription string
}

// Bookmark is a single XEP-0048 conference bookmark entry (§6).
type Bookmark struct {
	JID      string
	Name     string
	Autojoin bool
	Nick     string
}
