// Package document implements the persistent configuration document:
// its data model, schema validation, on-disk storage, and advisory
// locking. Readers always read from disk; there is no in-memory
// authoritative copy (see package store.go).
package document

// Well-known group keys the engine itself depends on.
var (
	GroupOwner = MustKey("group/owner")
	GroupBot   = MustKey("group/bot")
)

// AdminUserID is the fixed user-id of the ghost-included admin bot
// member (see Document.GhostIncludeBot / GhostRemoveBot).
const AdminUserID = "admin"

// Document is the single persistent record governing the portal:
// groups, rooms, members, and the engine-maintained tracking section.
type Document struct {
	Groups  Groups   `yaml:"groups"`
	Rooms   []Room   `yaml:"rooms"`
	Members []Member `yaml:"members"`
	Tracking Tracking `yaml:"do-not-edit-state"`

	// SHA is attached by the store on Read and stripped before Write;
	// it is never part of the serialized form and is not a document
	// field conceptually, only a read-time annotation (§4.2).
	SHA string `yaml:"-"`
}

// Groups maps a namespaced identifier to a human-readable label.
type Groups map[Key]string

// Room is a managed chat room and its access policy.
type Room struct {
	Name                string  `yaml:"name"`
	RoomID              string  `yaml:"room-id,omitempty"`
	Members             KeySet  `yaml:"members"`
	Admins              KeySet  `yaml:"admins"`
	OnlyAdminsCanSpeak  bool    `yaml:"only-admins-can-speak?"`
}

// Member is a managed user.
type Member struct {
	Name   string `yaml:"name"`
	UserID string `yaml:"user-id"`
	Groups KeySet `yaml:"groups"`
}

// AdminCredentials holds the admin bot's self-managed XMPP credentials.
type AdminCredentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Tracking is the engine-maintained do-not-edit-state section: the
// last-persisted set of managed entities, rewritten on every
// successful sync (§3).
type Tracking struct {
	ManagedMembers StringSet         `yaml:"managed-members"`
	ManagedRoomIDs StringSet         `yaml:"managed-room-ids"`
	ManagedGroups  StringSet         `yaml:"managed-groups"`
	AdminCreds     *AdminCredentials `yaml:"admin-credentials,omitempty"`
}

// EmptyTracking returns a Tracking value with initialized (non-nil,
// empty) sets, the zero value a fresh document or a first sync starts
// from.
func EmptyTracking() Tracking {
	return Tracking{
		ManagedMembers: NewStringSet(),
		ManagedRoomIDs: NewStringSet(),
		ManagedGroups:  NewStringSet(),
	}
}

// adminBotMember is the virtual member ghost-included at the start of
// every sync (§3, §4.5 phase 1).
func adminBotMember() Member {
	return Member{
		Name:   "Admin Bot",
		UserID: AdminUserID,
		Groups: NewKeySet(GroupBot),
	}
}

// GhostIncludeBot returns a copy of the document with the virtual
// admin-bot member prepended to Members. The original document is not
// mutated.
func (d Document) GhostIncludeBot() Document {
	members := make([]Member, 0, len(d.Members)+1)
	members = append(members, adminBotMember())
	members = append(members, d.Members...)
	d.Members = members
	return d
}

// GhostRemoveBot returns a copy of the document with the virtual
// admin-bot member removed from Members, ready for persistence (§3).
func (d Document) GhostRemoveBot() Document {
	members := make([]Member, 0, len(d.Members))
	for _, m := range d.Members {
		if m.UserID == AdminUserID {
			continue
		}
		members = append(members, m)
	}
	d.Members = members
	return d
}

// MemberByUserID looks up a member by user-id within Members.
func (d Document) MemberByUserID(userID string) (Member, bool) {
	for _, m := range d.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// RoomByRoomID looks up a room by its assigned room-id.
func (d Document) RoomByRoomID(roomID string) (Room, bool) {
	for _, r := range d.Rooms {
		if r.RoomID == roomID {
			return r, true
		}
	}
	return Room{}, false
}

// DefinedGroupKeys returns the set of group keys this document defines.
func (d Document) DefinedGroupKeys() KeySet {
	out := make(KeySet, len(d.Groups))
	for k := range d.Groups {
		out.Add(k)
	}
	return out
}
