package mutator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi/remoteapitest"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/syncengine"
)

func newTestMutator(t *testing.T) (*mutator.Mutator, *document.Store, *remoteapitest.Fake) {
	t.Helper()
	store, err := document.NewStore(t.TempDir())
	require.NoError(t, err)

	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, syncengine.Config{
		XMPPDomain:          "example.org",
		MucService:          "conference.example.org",
		Env:                 "test",
		DefaultTestPassword: "test-password",
	}, nil, nil, nil)

	m := mutator.New(store, engine, fake, time.Minute, nil, nil)
	return m, store, fake
}

func TestSwapState_AppliesMutationAndPersists(t *testing.T) {
	m, store, fake := newTestMutator(t)

	result := m.SwapState(context.Background(), "add alice", func(d document.Document) document.Document {
		d.Members = append(d.Members, document.Member{
			Name: "Alice", UserID: "alice", Groups: document.NewKeySet(document.GroupOwner),
		})
		return d
	})

	require.True(t, result.OK, "errors: %v", result.Errors)
	assert.Contains(t, fake.Users, "alice")

	onDisk, err := store.Read()
	require.NoError(t, err)
	assert.True(t, onDisk.Tracking.ManagedMembers.Contains("alice"))

	assert.NotEmpty(t, m.LastWriteSHA())
	assert.Equal(t, onDisk.SHA, m.LastWriteSHA())
}

func TestSwapState_RejectsInvalidCandidate(t *testing.T) {
	m, _, _ := newTestMutator(t)

	result := m.SwapState(context.Background(), "break it", func(d document.Document) document.Document {
		d.Groups = document.Groups{}
		return d
	})

	require.False(t, result.OK)
	assert.NotEmpty(t, result.Errors)
}

func TestSwapState_FailsFastWhenLockHeld(t *testing.T) {
	m, store, _ := newTestMutator(t)

	require.NoError(t, store.Lock("someone else", time.Minute))

	result := m.SwapState(context.Background(), "blocked", mutator.Identity)
	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "locked")
}

func TestSwapState_ClearsLockOnSuccess(t *testing.T) {
	m, store, _ := newTestMutator(t)

	result := m.SwapState(context.Background(), "noop", mutator.Identity)
	require.True(t, result.OK)

	info, err := store.ReadLock()
	require.NoError(t, err)
	assert.False(t, info.Locked)
}

func TestUpdatePassword_RequiresManagedUser(t *testing.T) {
	m, _, _ := newTestMutator(t)

	err := m.UpdatePassword(context.Background(), "ghost", "new-password")
	require.Error(t, err)
}

func TestUpdatePassword_ChangesRemotePassword(t *testing.T) {
	m, _, fake := newTestMutator(t)

	result := m.SwapState(context.Background(), "add alice", func(d document.Document) document.Document {
		d.Members = append(d.Members, document.Member{
			Name: "Alice", UserID: "alice", Groups: document.NewKeySet(document.GroupOwner),
		})
		return d
	})
	require.True(t, result.OK)

	err := m.UpdatePassword(context.Background(), "alice", "brand-new-password")
	require.NoError(t, err)
	assert.Equal(t, "brand-new-password", fake.Users["alice"])
}
