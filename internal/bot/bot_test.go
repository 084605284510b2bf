package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/bot/bottest"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi/remoteapitest"
)

func TestBootstrapCredentials_RegistersWhenUnknown(t *testing.T) {
	client := remoteapitest.NewFake()
	store := &fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}
	b := New(Config{XMPPDomain: "example.org"}, client, store, nil, nil, nil, nil, nil)

	creds, err := b.bootstrapCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, document.AdminUserID, creds.Username)
	assert.NotEmpty(t, creds.Password)
	assert.Contains(t, client.Users, document.AdminUserID)

	persisted, found, err := readAdminCredentials(store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, creds.Password, persisted.Password)
}

func TestBootstrapCredentials_ReusesStoredCredentials(t *testing.T) {
	client := remoteapitest.NewFake()
	store := &fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}
	require.NoError(t, writeAdminCredentials(store, document.AdminCredentials{Username: document.AdminUserID, Password: "existing"}))

	b := New(Config{XMPPDomain: "example.org"}, client, store, nil, nil, nil, nil, nil)

	creds, err := b.bootstrapCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "existing", creds.Password)
	// Bootstrap never touched the remote API since credentials were
	// already on disk.
	assert.Empty(t, client.Calls)
}

func TestStart_AuthFailureResetsPasswordAndRetriesOnce(t *testing.T) {
	client := remoteapitest.NewFake()
	store := &fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}

	attempts := 0
	fake := bottest.NewFake()
	b := New(Config{XMPPDomain: "example.org", MucService: "conference.example.org"}, client, store, &fakeDocs{}, nil,
		func() Session {
			attempts++
			if attempts == 1 {
				return &authFailOnceSession{Fake: fake}
			}
			return fake
		}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		fake.CloseWith(nil)
		cancel()
	}()

	_ = b.Start(ctx)

	degraded, _ := b.Degraded()
	assert.False(t, degraded)
	assert.GreaterOrEqual(t, attempts, 2)
}

// authFailOnceSession wraps bottest.Fake so the very first Connect
// call reports a SASL auth failure; it otherwise delegates everything
// else to the wrapped fake.
type authFailOnceSession struct {
	*bottest.Fake
}

func (s *authFailOnceSession) Connect(ctx context.Context, jid, password string) (bool, error) {
	return false, &AuthFailureError{JID: jid, Err: assertErr("bad credentials")}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestJoinRoom_NoopsWithoutALiveSession(t *testing.T) {
	b := New(Config{MucService: "conference.example.org"}, remoteapitest.NewFake(),
		&fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}, nil, nil, nil, nil, nil)

	b.JoinRoom("team-room")
	assert.False(t, b.joinedRooms["team-room"])
}

func TestSendDM_DropsMessagesToSelf(t *testing.T) {
	fake := bottest.NewFake()
	b := New(Config{XMPPDomain: "example.org"}, remoteapitest.NewFake(),
		&fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}, nil, nil, nil, nil, nil)
	b.session = fake

	b.sendDM(document.AdminUserID, "should never be sent")
	assert.Empty(t, fake.Sent)

	b.sendDM("alice", "hello")
	require.Len(t, fake.Sent, 1)
	assert.Equal(t, "alice@example.org", fake.Sent[0].ToJID)
}
