package syncengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi/remoteapitest"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/syncengine"
)

func testConfig() syncengine.Config {
	return syncengine.Config{
		XMPPDomain:          "example.org",
		MucService:          "conference.example.org",
		Env:                 "test",
		DefaultTestPassword: "test-password",
		ManagedMucOptions:   map[string]string{"persistent": "true"},
	}
}

func baseDocument() document.Document {
	return document.Document{
		Groups: document.Groups{
			document.GroupOwner: "Owner",
			document.GroupBot:   "Bot",
		},
		Rooms: []document.Room{
			{
				Name:    "Team Room",
				Members: document.NewKeySet(document.GroupOwner),
				Admins:  document.NewKeySet(document.GroupOwner),
			},
		},
		Members: []document.Member{
			{Name: "Alice", UserID: "alice", Groups: document.NewKeySet(document.GroupOwner)},
		},
		Tracking: document.EmptyTracking(),
	}
}

func TestSync_FirstPass_CreatesRoomsRegistersUsers(t *testing.T) {
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, testConfig(), nil, nil, nil)

	effective, report, err := engine.Sync(context.Background(), baseDocument())
	require.NoError(t, err)

	require.Len(t, effective.Rooms, 1)
	assert.Equal(t, "team-room", effective.Rooms[0].RoomID)
	assert.True(t, fake.Rooms["team-room"])

	assert.Contains(t, fake.Users, "alice")
	assert.Contains(t, fake.Users, document.AdminUserID)

	assert.True(t, effective.Tracking.ManagedMembers.Contains("alice"))
	assert.True(t, effective.Tracking.ManagedRoomIDs.Contains("team-room"))
	assert.False(t, effective.Tracking.ManagedMembers.Contains(document.AdminUserID))

	// The bot is ghost-included for the sync pass and ghost-removed
	// from the persisted result.
	for _, m := range effective.Members {
		assert.NotEqual(t, document.AdminUserID, m.UserID)
	}

	assert.NotNil(t, report)
	assert.False(t, report.Idempotent())
}

func TestSync_SecondPass_IsIdempotent(t *testing.T) {
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, testConfig(), nil, nil, nil)

	first, _, err := engine.Sync(context.Background(), baseDocument())
	require.NoError(t, err)

	second, report, err := engine.Sync(context.Background(), first)
	require.NoError(t, err)

	assert.True(t, report.Idempotent())
	assert.Equal(t, first.Rooms[0].RoomID, second.Rooms[0].RoomID)
}

func TestSync_RemovingAMember_DeletesAndUnregisters(t *testing.T) {
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, testConfig(), nil, nil, nil)

	first, _, err := engine.Sync(context.Background(), baseDocument())
	require.NoError(t, err)

	withoutAlice := first
	withoutAlice.Members = nil

	effective, report, err := engine.Sync(context.Background(), withoutAlice)
	require.NoError(t, err)

	assert.NotContains(t, fake.Users, "alice")
	assert.False(t, effective.Tracking.ManagedMembers.Contains("alice"))
	assert.Empty(t, effective.Tracking.ManagedMembers.Sorted())
	assert.False(t, report.Idempotent())
}

func TestSync_RemovingARoom_DestroysIt(t *testing.T) {
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, testConfig(), nil, nil, nil)

	first, _, err := engine.Sync(context.Background(), baseDocument())
	require.NoError(t, err)

	withoutRoom := first
	withoutRoom.Rooms = nil

	effective, _, err := engine.Sync(context.Background(), withoutRoom)
	require.NoError(t, err)

	assert.False(t, fake.Rooms["team-room"])
	assert.False(t, effective.Tracking.ManagedRoomIDs.Contains("team-room"))
}

func TestSync_AffiliationAndRosterConverge(t *testing.T) {
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, testConfig(), nil, nil, nil)

	doc := baseDocument()
	doc.Members = append(doc.Members, document.Member{
		Name: "Bob", UserID: "bob", Groups: document.NewKeySet(document.GroupOwner),
	})

	_, _, err := engine.Sync(context.Background(), doc)
	require.NoError(t, err)

	roomAffs := fake.Affs["team-room"]
	require.NotNil(t, roomAffs)
	assert.Equal(t, "admin", roomAffs["alice@example.org"])
	assert.Equal(t, "admin", roomAffs["bob@example.org"])
	// The ghost-included admin bot is always granted admin in every
	// managed room, regardless of the room's own admins/members sets
	// (§3 "the bot appears in every room's affiliations").
	assert.Equal(t, "admin", roomAffs[document.AdminUserID+"@example.org"])

	aliceRoster := fake.Rosters["alice"]
	require.Len(t, aliceRoster, 2) // bob and the admin bot
}

func TestSync_RegisterFailure_IsNonFatalAndRecorded(t *testing.T) {
	fake := remoteapitest.NewFake()
	fake.FailRegisterFor = map[string]bool{"alice": true}
	engine := syncengine.New(fake, testConfig(), nil, nil, nil)

	effective, report, err := engine.Sync(context.Background(), baseDocument())
	require.NoError(t, err)

	assert.NotContains(t, fake.Users, "alice")
	found := false
	for _, entry := range report.Entries {
		if entry.Kind == "api-error" {
			found = true
		}
	}
	assert.True(t, found)
	// The rest of the sync still ran: the room was still created.
	assert.Equal(t, "team-room", effective.Rooms[0].RoomID)
}
