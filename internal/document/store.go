package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	primaryFilename = "userdb.edn"
	swapFilename    = "userdb.swp.edn"
	lockFilename    = "userdb.edn.lock"
	backupDirName   = "backup"
	omemoDirName    = "omemo"
)

// shaKey is the reserved top-level attribute the config store attaches
// on Read to carry the file's fingerprint; it is the only top-level
// key checkTopLevelKeys tolerates beyond the four document sections
// (§4.1, §6).
const shaKey = "_file-sha256"

var topLevelKeys = []string{"groups", "rooms", "members", "do-not-edit-state", shaKey}

// Store is the on-disk document store: atomic writes, SHA-256
// fingerprinting, timestamped backups, advisory locking, and
// default-document seeding (§4.2).
type Store struct {
	dbFolder string
	// nowFn and newBackupSuffix supply the clock for backup filenames
	// and lock expiries and the backup filename suffix.
	nowFn           func() time.Time
	newBackupSuffix func() string
}

// NewStore seeds dbFolder (creating it and copying the compiled-in
// default document if the primary file is missing) and returns a Store
// bound to it.
func NewStore(dbFolder string) (*Store, error) {
	s := &Store{
		dbFolder: dbFolder,
		nowFn:    time.Now,
		newBackupSuffix: func() string {
			return uuid.New().String()[:8]
		},
	}
	if err := s.seed(); err != nil {
		return nil, fmt.Errorf("seeding document store: %w", err)
	}
	return s, nil
}

func (s *Store) primaryPath() string { return filepath.Join(s.dbFolder, primaryFilename) }
func (s *Store) swapPath() string    { return filepath.Join(s.dbFolder, swapFilename) }
func (s *Store) lockPath() string    { return filepath.Join(s.dbFolder, lockFilename) }
func (s *Store) backupDir() string   { return filepath.Join(s.dbFolder, backupDirName) }

func (s *Store) seed() error {
	if err := os.MkdirAll(s.dbFolder, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(s.backupDir(), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.dbFolder, omemoDirName), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(s.primaryPath()); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(s.primaryPath(), []byte(defaultDocumentYAML), 0o644)
}

// Read parses the primary document, validates it, and attaches the
// SHA-256 of the on-disk bytes to the returned document (§4.2).
func (s *Store) Read() (Document, error) {
	raw, err := os.ReadFile(s.primaryPath())
	if err != nil {
		return Document{}, fmt.Errorf("reading document: %w", err)
	}
	return s.parse(raw)
}

// CurrentSha returns the SHA-256 of the primary file's current bytes
// without parsing it, for the watcher's cheap self-write comparison.
func (s *Store) CurrentSha() (string, error) {
	raw, err := os.ReadFile(s.primaryPath())
	if err != nil {
		return "", fmt.Errorf("reading document for sha: %w", err)
	}
	return shaHex(raw), nil
}

func (s *Store) parse(raw []byte) (Document, error) {
	if err := checkTopLevelKeys(raw); err != nil {
		return Document{}, &FormatError{Path: s.primaryPath(), Err: err}
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, &FormatError{Path: s.primaryPath(), Err: err}
	}
	if doc.Tracking.ManagedMembers == nil {
		doc.Tracking.ManagedMembers = NewStringSet()
	}
	if doc.Tracking.ManagedRoomIDs == nil {
		doc.Tracking.ManagedRoomIDs = NewStringSet()
	}
	if doc.Tracking.ManagedGroups == nil {
		doc.Tracking.ManagedGroups = NewStringSet()
	}

	result := Validate(doc)
	if !result.OK() {
		return Document{}, &ValidationError{Result: result}
	}

	doc.SHA = shaHex(raw)
	return doc, nil
}

// checkTopLevelKeys rejects any top-level key the schema does not
// recognize (§4.1), since yaml.v3's struct decoding silently ignores
// unknown map keys rather than erroring on them.
func checkTopLevelKeys(raw []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	if len(node.Content) == 0 {
		return nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("document root must be a mapping")
	}
	allowed := make(map[string]struct{}, len(topLevelKeys))
	for _, k := range topLevelKeys {
		allowed[k] = struct{}{}
	}
	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if _, ok := allowed[key]; !ok {
			suggestion := closestMatch(key, topLevelKeys, 3)
			msg := fmt.Sprintf("unknown top-level key %q", key)
			if suggestion != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
			}
			return fmt.Errorf("%s", msg)
		}
	}
	return nil
}

// Write strips the SHA, validates, writes a timestamped backup, then
// atomically replaces the primary file via a sibling swap file
// (§4.2). Returns the written document (with SHA re-attached).
func (s *Store) Write(doc Document) (Document, error) {
	doc.SHA = ""
	result := Validate(doc)
	if !result.OK() {
		return Document{}, &ValidationError{Result: result}
	}

	if err := s.backupCurrent(); err != nil {
		return Document{}, fmt.Errorf("backing up document: %w", err)
	}

	encoded, err := canonicalMarshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("encoding document: %w", err)
	}

	if err := os.WriteFile(s.swapPath(), encoded, 0o644); err != nil {
		return Document{}, fmt.Errorf("writing swap file: %w", err)
	}
	if err := atomicReplace(s.swapPath(), s.primaryPath()); err != nil {
		return Document{}, fmt.Errorf("replacing document: %w", err)
	}

	doc.SHA = shaHex(encoded)
	return doc, nil
}

func (s *Store) backupCurrent() error {
	current, err := os.ReadFile(s.primaryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	name := fmt.Sprintf("userdb%d-%s.edn", s.nowFn().UnixMilli(), s.newBackupSuffix())
	return os.WriteFile(filepath.Join(s.backupDir(), name), current, 0o644)
}

// atomicReplace renames src over dst. On platforms where os.Rename
// cannot replace an existing file atomically this falls back to
// copy-then-delete, which loses atomicity only under a crash between
// the two steps, not under concurrent writers — they are already
// serialized by the mutator's lock (§4.2, §7).
func atomicReplace(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

func canonicalMarshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func shaHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
