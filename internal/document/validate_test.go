package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() Document {
	return Document{
		Groups: Groups{
			GroupOwner: "Owner",
			GroupBot:   "Bot",
		},
		Rooms: []Room{
			{
				Name:    "Team Room",
				RoomID:  "team-room",
				Members: NewKeySet(GroupOwner),
				Admins:  NewKeySet(GroupOwner),
			},
		},
		Members: []Member{
			{Name: "Alice", UserID: "alice", Groups: NewKeySet(GroupOwner)},
		},
		Tracking: EmptyTracking(),
	}
}

func TestValidate_AcceptsWellFormedDocument(t *testing.T) {
	result := Validate(validDocument())
	assert.True(t, result.OK(), "issues: %v", result.Issues)
}

func TestValidate_MissingMandatoryGroups(t *testing.T) {
	d := validDocument()
	d.Groups = Groups{}

	result := Validate(d)
	require.False(t, result.OK())

	codes := issueCodes(result)
	assert.Contains(t, codes, "E100")
	assert.Contains(t, codes, "E101")
}

func TestValidate_ShortCircuitsOnBrokenGroups(t *testing.T) {
	d := validDocument()
	d.Groups = Groups{}
	d.Members[0].Groups = NewKeySet(MustKey("group/nonexistent"))

	result := Validate(d)
	require.False(t, result.OK())
	for _, issue := range result.Issues {
		assert.NotEqual(t, "members", issue.Section)
	}
}

func TestValidate_DuplicateGroupLabel(t *testing.T) {
	d := validDocument()
	d.Groups[MustKey("group/extra")] = "Owner"

	result := Validate(d)
	require.False(t, result.OK())
	assert.Contains(t, issueCodes(result), "E103")
}

func TestValidate_MemberBlankNameAndDuplicateUserID(t *testing.T) {
	d := validDocument()
	d.Members = append(d.Members,
		Member{Name: "", UserID: "bob", Groups: NewKeySet(GroupOwner)},
		Member{Name: "Alice Two", UserID: "alice", Groups: NewKeySet(GroupOwner)},
	)

	result := Validate(d)
	require.False(t, result.OK())
	codes := issueCodes(result)
	assert.Contains(t, codes, "E300")
	assert.Contains(t, codes, "E303")
}

func TestValidate_MemberUnknownGroupRef(t *testing.T) {
	d := validDocument()
	d.Members[0].Groups = NewKeySet(MustKey("group/ghost"))

	result := Validate(d)
	require.False(t, result.OK())
	assert.NotEmpty(t, result.Issues)
	assert.Equal(t, "members", result.Issues[0].Section)
}

func TestValidate_MemberEmptyGroupsRejected(t *testing.T) {
	d := validDocument()
	d.Members[0].Groups = NewKeySet()

	result := Validate(d)
	require.False(t, result.OK())
	assert.Contains(t, issueCodes(result), "E304")
}

func issueCodes(r *Result) []string {
	codes := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		codes[i] = issue.Code
	}
	return codes
}
