package document

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	return s
}

func TestNewStore_SeedsDefaultDocument(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Read()
	require.NoError(t, err)
	require.NotEmpty(t, doc.SHA)
	require.Contains(t, doc.Groups, GroupOwner)
	require.Contains(t, doc.Groups, GroupBot)
}

func TestStore_WriteThenRead_RoundTrips(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Read()
	require.NoError(t, err)

	doc.Members = append(doc.Members, Member{Name: "Alice", UserID: "alice", Groups: NewKeySet(GroupOwner)})
	written, err := s.Write(doc)
	require.NoError(t, err)
	require.NotEmpty(t, written.SHA)

	reread, err := s.Read()
	require.NoError(t, err)
	require.Len(t, reread.Members, 1)
	require.Equal(t, "alice", reread.Members[0].UserID)
	require.Equal(t, written.SHA, reread.SHA)
}

func TestStore_Write_RejectsInvalidDocument(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Read()
	require.NoError(t, err)
	doc.Groups = Groups{}

	_, err = s.Write(doc)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestStore_Write_CreatesTimestampedBackup(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Read()
	require.NoError(t, err)
	_, err = s.Write(doc)
	require.NoError(t, err)

	entries, err := os.ReadDir(s.backupDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStore_Read_RejectsUnknownTopLevelKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	raw := []byte("groups:\n  group/owner: Owner\n  group/bot: Bot\nroosm:\n  - foo\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, primaryFilename), raw, 0o644))

	_, err = s.Read()
	require.Error(t, err)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	require.Contains(t, ferr.Error(), "roosm")
}

func TestStore_LockAndReadLock(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Lock("testing", time.Minute))

	info, err := s.ReadLock()
	require.NoError(t, err)
	require.True(t, info.Locked)
	require.Equal(t, "testing", info.Reason)

	require.NoError(t, s.ClearLock())

	info, err = s.ReadLock()
	require.NoError(t, err)
	require.False(t, info.Locked)
}

func TestStore_ReadLock_AutoClearsExpiredLock(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Lock("stale", -time.Minute))

	info, err := s.ReadLock()
	require.NoError(t, err)
	require.False(t, info.Locked)

	_, err = os.Stat(s.lockPath())
	require.True(t, os.IsNotExist(err))
}
