package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
)

type fakeCredentialStore struct {
	doc document.Document
}

func (f *fakeCredentialStore) Read() (document.Document, error) { return f.doc, nil }

func (f *fakeCredentialStore) Write(d document.Document) (document.Document, error) {
	f.doc = d
	return d, nil
}

func TestReadAdminCredentials_NotYetSet(t *testing.T) {
	store := &fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}

	_, found, err := readAdminCredentials(store)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteThenReadAdminCredentials(t *testing.T) {
	store := &fakeCredentialStore{doc: document.Document{Tracking: document.EmptyTracking()}}

	err := writeAdminCredentials(store, document.AdminCredentials{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	creds, found, err := readAdminCredentials(store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "admin", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}
