package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/bot/bottest"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi/remoteapitest"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/syncengine"
)

type fakeDocs struct {
	doc document.Document
}

func (f *fakeDocs) Read() (document.Document, error) { return f.doc, nil }

func docWithOwner(ownerID string) document.Document {
	return document.Document{
		Groups: document.Groups{document.GroupOwner: "Owner", document.GroupBot: "Bot"},
		Members: []document.Member{
			{Name: "Owner Person", UserID: ownerID, Groups: document.NewKeySet(document.GroupOwner)},
			{Name: "Plain Person", UserID: "plain", Groups: document.NewKeySet()},
		},
	}
}

func newTestBot(t *testing.T, docs *fakeDocs, mut *mutator.Mutator) *Bot {
	t.Helper()
	store := &fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}
	return New(Config{XMPPDomain: "example.org", MucService: "conference.example.org", AdminConsoleURL: "https://admin.example.org"},
		remoteapitest.NewFake(), store, docs, mut, func() Session { return bottest.NewFake() }, nil, nil)
}

func TestDispatch_BareBotReturnsHelp(t *testing.T) {
	b := newTestBot(t, &fakeDocs{doc: docWithOwner("owner1")}, nil)
	reply := b.dispatch(context.Background(), IncomingMessage{FromJID: "owner1@example.org"}, "")
	assert.Contains(t, reply, "Commands:")
}

func TestDispatch_Status(t *testing.T) {
	b := newTestBot(t, &fakeDocs{doc: docWithOwner("owner1")}, nil)
	reply := b.dispatch(context.Background(), IncomingMessage{FromJID: "owner1@example.org"}, "status")
	assert.Equal(t, "connected", reply)
}

func TestDispatch_LoginEjAdmin_DeniedForNonOwner(t *testing.T) {
	b := newTestBot(t, &fakeDocs{doc: docWithOwner("owner1")}, nil)
	reply := b.dispatch(context.Background(), IncomingMessage{FromJID: "plain@example.org"}, "login ej admin")
	assert.Contains(t, reply, "restricted")
}

func TestDispatch_LoginEjAdmin_AllowedForOwner(t *testing.T) {
	b := newTestBot(t, &fakeDocs{doc: docWithOwner("owner1")}, nil)
	require.NoError(t, writeAdminCredentials(b.store, document.AdminCredentials{Username: "admin", Password: "hunter2"}))

	reply := b.dispatch(context.Background(), IncomingMessage{FromJID: "owner1@example.org"}, "login ej admin")
	assert.Contains(t, reply, "hunter2")
	assert.Contains(t, reply, "admin.example.org")
}

func TestDispatch_CreateMeet_RequestsRoomViaMutator(t *testing.T) {
	store, err := document.NewStore(t.TempDir())
	require.NoError(t, err)
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, syncengine.Config{XMPPDomain: "example.org", MucService: "conference.example.org", Env: "test", DefaultTestPassword: "pw"}, nil, nil, nil)
	mut := mutator.New(store, engine, fake, time.Minute, nil, nil)

	b := newTestBot(t, &fakeDocs{doc: docWithOwner("owner1")}, mut)

	reply := b.dispatch(context.Background(), IncomingMessage{FromJID: "owner1@example.org"}, "create meet standup")
	assert.Contains(t, reply, "standup")
	assert.Contains(t, reply, "requested")

	doc, err := store.Read()
	require.NoError(t, err)
	found := false
	for _, r := range doc.Rooms {
		if r.Name == "standup" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHandleIncoming_IgnoresSelfMucMessages(t *testing.T) {
	b := newTestBot(t, &fakeDocs{doc: docWithOwner("owner1")}, nil)
	b.handleIncoming(context.Background(), IncomingMessage{FromMUC: true, SelfMsg: true, Body: "bot status"})
	// No panic and nothing sent; nothing to assert beyond safety, since
	// the bot has no live session in this test.
}
