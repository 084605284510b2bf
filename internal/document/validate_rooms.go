package document

import "fmt"

// validateRooms enforces: non-blank and unique name; if room-id is
// set, it must be a valid slug; members and admins non-empty and every
// group identifier they name must be defined in Groups (§3).
func validateRooms(rooms []Room, defined KeySet, result *Result) {
	seenNames := make(map[string]int)

	for i, room := range rooms {
		field := fmt.Sprintf("rooms[%d]", i)

		if room.Name == "" {
			result.AddIssue("E200", "room name must not be blank", field+".name", "rooms", "")
		} else if prior, ok := seenNames[room.Name]; ok {
			result.AddIssue("E201",
				fmt.Sprintf("room name %q must be unique, also used at rooms[%d]", room.Name, prior),
				field+".name", "rooms", "")
		} else {
			seenNames[room.Name] = i
		}

		if room.RoomID != "" && !isValidSlug(room.RoomID) {
			result.AddIssue("E202",
				fmt.Sprintf("room-id %q must be lowercase ascii letters, digits and hyphens with no leading or trailing hyphen", room.RoomID),
				field+".room-id", "rooms", "")
		}

		if room.Members.Len() == 0 {
			result.AddIssue("E203", "members must not be empty", field+".members", "rooms", "")
		}
		if room.Admins.Len() == 0 {
			result.AddIssue("E204", "admins must not be empty", field+".admins", "rooms", "")
		}

		validateGroupRefs(room.Members, defined, field+".members", "rooms", result)
		validateGroupRefs(room.Admins, defined, field+".admins", "rooms", result)
	}
}

// validateGroupRefs checks that every key in refs is present in
// defined, suggesting the closest defined key on mismatch (§4.1).
func validateGroupRefs(refs KeySet, defined KeySet, field, section string, result *Result) {
	for _, k := range refs.Sorted() {
		if defined.Contains(k) {
			continue
		}
		result.AddIssue("E205",
			fmt.Sprintf("%s references undefined group %s", field, k.String()),
			field, section, suggestGroupKey(k, defined))
	}
}
