package syncengine

import (
	"context"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
)

// deleteUsers is phase 3: for each user-id no longer present, remove
// it from every managed peer's roster, set its affiliation to "none"
// in every tracked room, then unregister it. Per-call failures are
// recorded in the report but never abort the phase (§4.5, §7).
func (e *Engine) deleteUsers(ctx context.Context, working *document.Document, d diff, prevTracking document.Tracking, report *Report) {
	if len(d.usersToDelete) == 0 {
		return
	}

	peers := make([]string, 0, len(working.Members))
	for _, m := range working.Members {
		peers = append(peers, m.UserID)
	}

	for _, userID := range d.usersToDelete {
		for _, peer := range peers {
			if peer == userID {
				continue
			}
			if err := e.Client.DeleteRosterItem(ctx, peer, e.Config.XMPPDomain, userID, e.Config.XMPPDomain); err != nil {
				report.add("api-error", "deleting %s from %s's roster: %v", userID, peer, err)
			}
		}

		for _, roomID := range prevTracking.ManagedRoomIDs.Sorted() {
			if err := e.Client.SetRoomAffiliation(ctx, roomID, userID, e.Config.XMPPDomain, "none"); err != nil {
				report.add("api-error", "clearing %s affiliation in %s: %v", userID, roomID, err)
			}
		}

		if err := e.Client.Unregister(ctx, userID); err != nil {
			report.add("api-error", "unregistering %s: %v", userID, err)
		} else {
			report.add("user-deleted", userID)
		}
	}
}

// deleteRooms is phase 4: for each tracked room-id absent from the
// current document, clear every tracked user's affiliation then
// destroy the room (§4.5).
func (e *Engine) deleteRooms(ctx context.Context, d diff, prevTracking document.Tracking, report *Report) {
	if len(d.roomsToDelete) == 0 {
		return
	}

	for _, roomID := range d.roomsToDelete {
		for _, userID := range prevTracking.ManagedMembers.Sorted() {
			if err := e.Client.SetRoomAffiliation(ctx, roomID, userID, e.Config.XMPPDomain, "none"); err != nil {
				report.add("api-error", "clearing %s affiliation in deleted room %s: %v", userID, roomID, err)
			}
		}
		if err := e.Client.DestroyRoom(ctx, roomID); err != nil {
			report.add("api-error", "destroying room %s: %v", roomID, err)
		} else {
			report.add("room-deleted", roomID)
		}
	}
}
