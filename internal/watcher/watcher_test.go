package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/watcher"
)

// fakeMutator records every SwapState call so tests can assert the
// watcher reacted (or didn't) to a filesystem event.
type fakeMutator struct {
	calls        int
	lastWriteSHA string
}

func (f *fakeMutator) SwapState(ctx context.Context, reason string, fn mutator.Mutation) mutator.Result {
	f.calls++
	return mutator.Result{OK: true}
}

func (f *fakeMutator) LastWriteSHA() string { return f.lastWriteSHA }

func TestWatcher_ReactsToOutOfBandEdit(t *testing.T) {
	dir := t.TempDir()
	store, err := document.NewStore(dir)
	require.NoError(t, err)

	mut := &fakeMutator{lastWriteSHA: "unrelated-sha"}
	w, err := watcher.New(dir, store, mut, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "userdb.edn"),
		[]byte("groups:\n  group/owner: Owner\n  group/bot: Bot\nrooms: []\nmembers: []\ndo-not-edit-state: {}\n"), 0o644))

	require.Eventually(t, func() bool {
		return mut.calls > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_SuppressesSelfWriteEcho(t *testing.T) {
	dir := t.TempDir()
	store, err := document.NewStore(dir)
	require.NoError(t, err)

	sha, err := store.CurrentSha()
	require.NoError(t, err)

	mut := &fakeMutator{lastWriteSHA: sha}
	w, err := watcher.New(dir, store, mut, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	// Touch the file without changing its content — the watcher fires
	// an event, but the sha still matches the mutator's last write, so
	// no SwapState call should occur.
	current, err := os.ReadFile(filepath.Join(dir, "userdb.edn"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "userdb.edn"), current, 0o644))

	time.Sleep(500 * time.Millisecond)
	require.Equal(t, 0, mut.calls)
}
