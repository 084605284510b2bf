// Package membership implements the pure function mapping a user's
// groups and a room's admin/member group sets to a MUC affiliation
// (§4.4).
package membership

import "github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"

// Affiliation is a user's persistent role in a managed room.
type Affiliation string

const (
	Owner  Affiliation = "owner"
	Admin  Affiliation = "admin"
	Member Affiliation = "member"
	None   Affiliation = "none"
	Outcast Affiliation = "outcast"
)

// Resolve computes the affiliation a user with userGroups should hold
// in a room defined by roomAdmins/roomMembers. Admin precedence is
// total: an admin-granting group overrides any member-granting group
// (§4.4).
func Resolve(userGroups, roomAdmins, roomMembers document.KeySet) Affiliation {
	if userGroups.Intersects(roomAdmins) {
		return Admin
	}
	if userGroups.Intersects(roomMembers) {
		return Member
	}
	return None
}
