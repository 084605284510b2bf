package document

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LockInfo is the result of reading the advisory lock file (§4.2).
type LockInfo struct {
	Locked     bool
	Reason     string
	ExpiresAt  time.Time
	HumanReadable string
}

// LockHeldError describes a mutation attempted while the lock file is
// valid (§7); the mutator reports its message in Result.Errors.
type LockHeldError struct {
	Reason        string
	HumanReadable string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("locked for %s until %s", e.Reason, e.HumanReadable)
}

// Lock writes the advisory lock file: three lines, reason, absolute
// expiry in epoch ms, and a human-readable expiry (§4.2, §6).
func (s *Store) Lock(reason string, timeout time.Duration) error {
	expires := s.nowFn().Add(timeout)
	human := expires.Format(time.RFC3339)
	content := fmt.Sprintf("%s\n%d\n%s\n", reason, expires.UnixMilli(), human)
	return os.WriteFile(s.lockPath(), []byte(content), 0o644)
}

// ReadLock reports whether the lock is currently held. A lock whose
// expiry has passed is automatically cleared (§4.2, §8).
func (s *Store) ReadLock() (LockInfo, error) {
	raw, err := os.ReadFile(s.lockPath())
	if err != nil {
		if os.IsNotExist(err) {
			return LockInfo{}, nil
		}
		return LockInfo{}, fmt.Errorf("reading lock file: %w", err)
	}

	lines := strings.SplitN(strings.TrimRight(string(raw), "\n"), "\n", 3)
	if len(lines) < 2 {
		// Malformed lock file; treat as stale and clear it rather than
		// wedging every future mutation behind an unparsable lock.
		_ = s.ClearLock()
		return LockInfo{}, nil
	}

	reason := lines[0]
	expiryMs, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		_ = s.ClearLock()
		return LockInfo{}, nil
	}
	human := ""
	if len(lines) > 2 {
		human = lines[2]
	}
	expires := time.UnixMilli(expiryMs)

	if !s.nowFn().Before(expires) {
		if err := s.ClearLock(); err != nil {
			return LockInfo{}, fmt.Errorf("clearing expired lock: %w", err)
		}
		return LockInfo{}, nil
	}

	return LockInfo{Locked: true, Reason: reason, ExpiresAt: expires, HumanReadable: human}, nil
}

// ClearLock removes the lock file. Removing an already-absent lock
// file is not an error: every exit path of the mutator calls this
// unconditionally (§4.7).
func (s *Store) ClearLock() error {
	err := os.Remove(s.lockPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
