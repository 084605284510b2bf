package bot

import (
	"fmt"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
)

// CredentialStore is the narrow slice of the document store the bot
// uses to persist its own self-managed credentials (§4.6). It bypasses
// the sync engine and the lock entirely — admin-credentials is an
// engine-maintained field the operator never edits, and serializing
// its one field through a full swapState would make bot bootstrap
// depend on the sync engine being healthy, which is backwards.
type CredentialStore interface {
	Read() (document.Document, error)
	Write(document.Document) (document.Document, error)
}

func readAdminCredentials(store CredentialStore) (document.AdminCredentials, bool, error) {
	doc, err := store.Read()
	if err != nil {
		return document.AdminCredentials{}, false, fmt.Errorf("reading document for admin credentials: %w", err)
	}
	if doc.Tracking.AdminCreds == nil {
		return document.AdminCredentials{}, false, nil
	}
	return *doc.Tracking.AdminCreds, true, nil
}

func writeAdminCredentials(store CredentialStore, creds document.AdminCredentials) error {
	doc, err := store.Read()
	if err != nil {
		return fmt.Errorf("reading document for admin credentials: %w", err)
	}
	doc.Tracking.AdminCreds = &creds
	if _, err := store.Write(doc); err != nil {
		return fmt.Errorf("writing admin credentials: %w", err)
	}
	return nil
}
