package syncengine

import (
	"context"
	"sort"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
)

// createRooms is phase 6: for each room without a room-id, derive a
// candidate id from its name, issue createRoomWithOpts merging the
// configured defaults with the room's moderation policy, and on
// success assign room-id and tell the admin bot to join it (§4.5).
func (e *Engine) createRooms(ctx context.Context, working *document.Document, report *Report) {
	for i := range working.Rooms {
		room := &working.Rooms[i]
		if room.RoomID != "" {
			continue
		}

		candidate := kebabCase(room.Name)
		opts := e.roomOpts(room.OnlyAdminsCanSpeak)

		if err := e.Client.CreateRoomWithOpts(ctx, candidate, opts); err != nil {
			report.add("api-error", "creating room %s: %v", candidate, err)
			continue
		}

		room.RoomID = candidate
		report.add("room-created", candidate)
		e.Notifier.JoinRoom(candidate)
		e.Notifier.AnnounceRoomCreated(*room)
	}
}

// roomOpts merges the configured default MUC options with the room's
// own moderation policy (§4.5 phase 6): moderated mirrors
// only-admins-can-speak?, and members_by_default is forced false when
// moderated (an ejabberd MUC default would otherwise let any member
// speak regardless of the moderated flag).
func (e *Engine) roomOpts(moderated bool) []remoteapi.RoomOpt {
	names := make([]string, 0, len(e.Config.ManagedMucOptions))
	for name := range e.Config.ManagedMucOptions {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]remoteapi.RoomOpt, 0, len(names)+2)
	for _, name := range names {
		opts = append(opts, remoteapi.RoomOpt{Name: name, Value: e.Config.ManagedMucOptions[name]})
	}

	moderatedVal := "false"
	if moderated {
		moderatedVal = "true"
	}
	opts = append(opts, remoteapi.RoomOpt{Name: "moderated", Value: moderatedVal})
	if moderated {
		opts = append(opts, remoteapi.RoomOpt{Name: "members_by_default", Value: "false"})
	}
	return opts
}

func kebabCase(name string) string { return document.KebabCase(name) }
