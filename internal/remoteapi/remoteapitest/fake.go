// Package remoteapitest provides an in-memory fake of
// remoteapi.Client for the sync engine, mutator, and bot test suites —
// mirroring the teacher's pattern of hand-written fakes for its own
// storage/lock interfaces rather than a mocking framework
// (DESIGN.md).
package remoteapitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
)

// Fake is a single-process, mutex-guarded in-memory ejabberd. It
// records every call it receives so tests can assert on exact
// invocations (e.g. the opts passed to CreateRoomWithOpts).
type Fake struct {
	mu sync.Mutex

	Users     map[string]string // user -> password
	Rooms     map[string]bool   // roomID -> exists
	RoomOpts  map[string][]remoteapi.RoomOpt
	Affs      map[string]map[string]string // roomID -> jid -> affiliation
	Rosters   map[string][]remoteapi.RosterItem
	Bookmarks map[string][]remoteapi.Bookmark

	Calls []string

	// FailRegisterFor, if set, causes Register to return an ApiError
	// for that user id, simulating a remote failure that must not
	// abort the rest of the phase.
	FailRegisterFor map[string]bool
}

// NewFake returns a Fake with empty but initialized maps.
func NewFake() *Fake {
	return &Fake{
		Users:     map[string]string{},
		Rooms:     map[string]bool{},
		RoomOpts:  map[string][]remoteapi.RoomOpt{},
		Affs:      map[string]map[string]string{},
		Rosters:   map[string][]remoteapi.RosterItem{},
		Bookmarks: map[string][]remoteapi.Bookmark{},
	}
}

var _ remoteapi.Client = (*Fake)(nil)

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

func (f *Fake) Register(_ context.Context, user, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("register:" + user)
	if f.FailRegisterFor[user] {
		return &remoteapi.ApiError{Endpoint: "register", Status: 500, Body: "injected failure"}
	}
	f.Users[user] = password
	return nil
}

func (f *Fake) ChangePassword(_ context.Context, user, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("change_password:" + user)
	if _, ok := f.Users[user]; !ok {
		return &remoteapi.ApiError{Endpoint: "change_password", Status: 404, Body: "no such user"}
	}
	f.Users[user] = newPassword
	return nil
}

func (f *Fake) Unregister(_ context.Context, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unregister:" + user)
	delete(f.Users, user)
	delete(f.Rosters, user)
	delete(f.Bookmarks, user)
	return nil
}

func (f *Fake) RegisteredUsers(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Users))
	for u := range f.Users {
		out = append(out, u)
	}
	return out, nil
}

func (f *Fake) CreateRoom(ctx context.Context, name string) error {
	return f.CreateRoomWithOpts(ctx, name, nil)
}

func (f *Fake) CreateRoomWithOpts(_ context.Context, name string, opts []remoteapi.RoomOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create_room:" + name)
	f.Rooms[name] = true
	f.RoomOpts[name] = opts
	if _, ok := f.Affs[name]; !ok {
		f.Affs[name] = map[string]string{}
	}
	return nil
}

func (f *Fake) DestroyRoom(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("destroy_room:" + roomID)
	delete(f.Rooms, roomID)
	delete(f.Affs, roomID)
	return nil
}

func (f *Fake) MucOnlineRooms(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Rooms))
	for r := range f.Rooms {
		out = append(out, r)
	}
	return out, nil
}

func (f *Fake) GetRoomOptions(_ context.Context, roomID string) ([]remoteapi.RoomOpt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RoomOpts[roomID], nil
}

func (f *Fake) GetRoomAffiliations(_ context.Context, roomID string) ([]remoteapi.Affiliation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remoteapi.Affiliation, 0, len(f.Affs[roomID]))
	for jid, aff := range f.Affs[roomID] {
		out = append(out, remoteapi.Affiliation{JID: jid, Affiliation: aff})
	}
	return out, nil
}

func (f *Fake) SetRoomAffiliation(_ context.Context, roomID, user, host, affiliation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	jid := fmt.Sprintf("%s@%s", user, host)
	f.record(fmt.Sprintf("set_affiliation:%s:%s:%s", roomID, jid, affiliation))
	if f.Affs[roomID] == nil {
		f.Affs[roomID] = map[string]string{}
	}
	if affiliation == "none" {
		delete(f.Affs[roomID], jid)
	} else {
		f.Affs[roomID][jid] = affiliation
	}
	return nil
}

func (f *Fake) GetRoster(_ context.Context, user string) ([]remoteapi.RosterItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteapi.RosterItem(nil), f.Rosters[user]...), nil
}

func (f *Fake) AddRosterItem(_ context.Context, localUser, _ string, user, host, nick string, groups []string, subscription string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("add_roster:%s:%s", localUser, user))
	jid := fmt.Sprintf("%s@%s", user, host)
	items := f.Rosters[localUser]
	replaced := false
	for i, it := range items {
		if it.JID == jid {
			items[i] = remoteapi.RosterItem{JID: jid, Nick: nick, Groups: groups, Subscription: subscription}
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, remoteapi.RosterItem{JID: jid, Nick: nick, Groups: groups, Subscription: subscription})
	}
	f.Rosters[localUser] = items
	return nil
}

func (f *Fake) DeleteRosterItem(_ context.Context, localUser, _ string, user, host string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("delete_roster:%s:%s", localUser, user))
	jid := fmt.Sprintf("%s@%s", user, host)
	items := f.Rosters[localUser]
	out := items[:0]
	for _, it := range items {
		if it.JID != jid {
			out = append(out, it)
		}
	}
	f.Rosters[localUser] = out
	return nil
}

func (f *Fake) GetUserBookmarks(_ context.Context, user string) ([]remoteapi.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteapi.Bookmark(nil), f.Bookmarks[user]...), nil
}

func (f *Fake) SetUserBookmarks(_ context.Context, user string, bookmarks []remoteapi.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_bookmarks:" + user)
	f.Bookmarks[user] = bookmarks
	return nil
}
