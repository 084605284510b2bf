package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
)

func TestResolve_AdminPrecedenceOverMember(t *testing.T) {
	owner := document.MustKey("group/owner")
	eng := document.MustKey("group/engineering")

	userGroups := document.NewKeySet(owner, eng)
	roomAdmins := document.NewKeySet(owner)
	roomMembers := document.NewKeySet(eng)

	assert.Equal(t, Admin, Resolve(userGroups, roomAdmins, roomMembers))
}

func TestResolve_MemberWhenNotAdmin(t *testing.T) {
	eng := document.MustKey("group/engineering")
	sales := document.MustKey("group/sales")

	userGroups := document.NewKeySet(eng)
	roomAdmins := document.NewKeySet(sales)
	roomMembers := document.NewKeySet(eng)

	assert.Equal(t, Member, Resolve(userGroups, roomAdmins, roomMembers))
}

func TestResolve_NoneWhenNoOverlap(t *testing.T) {
	eng := document.MustKey("group/engineering")
	sales := document.MustKey("group/sales")
	other := document.MustKey("group/other")

	userGroups := document.NewKeySet(other)
	roomAdmins := document.NewKeySet(eng)
	roomMembers := document.NewKeySet(sales)

	assert.Equal(t, None, Resolve(userGroups, roomAdmins, roomMembers))
}

func TestResolve_EmptyUserGroupsIsNone(t *testing.T) {
	eng := document.MustKey("group/engineering")
	userGroups := document.NewKeySet()
	roomAdmins := document.NewKeySet(eng)
	roomMembers := document.NewKeySet(eng)

	assert.Equal(t, None, Resolve(userGroups, roomAdmins, roomMembers))
}
