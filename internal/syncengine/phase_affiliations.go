package syncengine

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/membership"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
)

// syncAffiliationsAndBookmarks is phase 8. It fetches
// getRoomAffiliations for every managed room exactly once, then uses
// that snapshot twice: to converge each (room, member) affiliation,
// and to compute each member's desired bookmark set (§4.5).
func (e *Engine) syncAffiliationsAndBookmarks(ctx context.Context, working document.Document, cache *lru.Cache[string, any], report *Report) {
	rooms := make([]document.Room, 0, len(working.Rooms))
	for _, r := range working.Rooms {
		if r.RoomID != "" {
			rooms = append(rooms, r)
		}
	}

	current := make(map[string]map[string]string, len(rooms)) // roomID -> jid -> affiliation
	for _, r := range rooms {
		current[r.RoomID] = e.affiliationsFor(ctx, r.RoomID, cache, report)
	}

	// Desired affiliation per member per room, built while converging
	// so the bookmark pass below reuses it instead of recomputing.
	desired := make(map[string]map[string]membership.Affiliation, len(working.Members))

	for _, m := range working.Members {
		desired[m.UserID] = make(map[string]membership.Affiliation, len(rooms))
		for _, r := range rooms {
			// The ghost-included admin bot is not an operator-facing
			// member and so never appears in a room's admins/members
			// sets; it is granted admin in every managed room directly
			// rather than through the membership function, which is the
			// whole point of ghost-including it (§3, §4.5 phase 8).
			var target membership.Affiliation
			if m.UserID == document.AdminUserID {
				target = membership.Admin
			} else {
				target = membership.Resolve(m.Groups, r.Admins, r.Members)
			}
			desired[m.UserID][r.RoomID] = target

			jidStr := jid(m.UserID, e.Config.XMPPDomain)
			existingAff := current[r.RoomID][jidStr]
			if existingAff == string(target) || (existingAff == "" && target == membership.None) {
				report.add("affiliation-unchanged", "%s in %s: %s", m.UserID, r.RoomID, target)
				continue
			}

			if err := e.Client.SetRoomAffiliation(ctx, r.RoomID, m.UserID, e.Config.XMPPDomain, string(target)); err != nil {
				report.add("api-error", "setting %s affiliation in %s: %v", m.UserID, r.RoomID, err)
				continue
			}
			report.add("affiliation-updated", "%s in %s: %s -> %s", m.UserID, r.RoomID, existingAff, target)

			if m.UserID != document.AdminUserID {
				e.Notifier.AnnounceAffiliationChange(m.UserID, r, target)
			}
		}
	}

	for _, m := range working.Members {
		e.syncBookmarks(ctx, m, rooms, desired[m.UserID], report)
	}
}

func (e *Engine) affiliationsFor(ctx context.Context, roomID string, cache *lru.Cache[string, any], report *Report) map[string]string {
	key := fmt.Sprintf("affiliations:%s", roomID)
	if cached, ok := cache.Get(key); ok {
		return cached.(map[string]string)
	}
	affs, err := e.Client.GetRoomAffiliations(ctx, roomID)
	if err != nil {
		report.add("api-error", "fetching affiliations for %s: %v", roomID, err)
		affs = nil
	}
	out := make(map[string]string, len(affs))
	for _, a := range affs {
		out[a.JID] = a.Affiliation
	}
	cache.Add(key, out)
	return out
}

// syncBookmarks computes the desired bookmark set for one member (all
// managed rooms where their affiliation is member/admin/owner),
// normalizes the current set, and writes only on a difference (§4.5).
func (e *Engine) syncBookmarks(ctx context.Context, m document.Member, rooms []document.Room, affPerRoom map[string]membership.Affiliation, report *Report) {
	desired := make([]remoteapi.Bookmark, 0, len(rooms))
	for _, r := range rooms {
		switch affPerRoom[r.RoomID] {
		case membership.Member, membership.Admin, membership.Owner:
			desired = append(desired, remoteapi.Bookmark{
				JID:      e.mucJID(r.RoomID),
				Name:     r.Name,
				Autojoin: true,
				Nick:     m.UserID,
			})
		}
	}
	desired = normalizeBookmarks(desired)

	existing, err := e.Client.GetUserBookmarks(ctx, m.UserID)
	if err != nil {
		report.add("api-error", "fetching %s's bookmarks: %v", m.UserID, err)
		existing = nil
	}
	existing = normalizeBookmarks(existing)

	if bookmarksEqual(existing, desired) {
		report.add("bookmarks-unchanged", m.UserID)
		return
	}

	if err := e.Client.SetUserBookmarks(ctx, m.UserID, desired); err != nil {
		report.add("api-error", "writing %s's bookmarks: %v", m.UserID, err)
		return
	}
	report.add("bookmarks-updated", m.UserID)
}

func normalizeBookmarks(bookmarks []remoteapi.Bookmark) []remoteapi.Bookmark {
	out := append([]remoteapi.Bookmark(nil), bookmarks...)
	sort.Slice(out, func(i, j int) bool { return out[i].JID < out[j].JID })
	return out
}

func bookmarksEqual(a, b []remoteapi.Bookmark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
