// Package mutator implements swapState (§4.7), the atomic
// validate -> sync -> persist transaction every mutation source (HTTP
// UI, bot commands, file edits) funnels through, and UpdatePassword, a
// separate operation that bypasses the document entirely.
package mutator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/metrics"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/syncengine"
)

// Mutation is the pure function swapState applies to the current
// document to produce the candidate document. Identity is used for a
// refresh sync (watcher, SIGHUP, resume).
type Mutation func(document.Document) document.Document

// Identity is the mutation that changes nothing, used whenever a
// caller only wants the engine to reconverge (§4.7, §4.8, §9.1).
func Identity(d document.Document) document.Document { return d }

// Store is the subset of document.Store the mutator depends on.
type Store interface {
	Read() (document.Document, error)
	Write(document.Document) (document.Document, error)
	Lock(reason string, timeout time.Duration) error
	ReadLock() (document.LockInfo, error)
	ClearLock() error
}

// Engine is the subset of syncengine.Engine the mutator depends on.
type Engine interface {
	Sync(ctx context.Context, input document.Document) (document.Document, *syncengine.Report, error)
}

// Result is swapState's return value (§4.7).
type Result struct {
	OK     bool
	State  document.Document
	Report *syncengine.Report
	Errors []string
}

// Mutator serializes every document mutation through the lock file,
// runs the sync engine, and persists the effective document (§4.7,
// §5).
type Mutator struct {
	Store       Store
	Engine      Engine
	Client      remoteapi.Client
	SyncTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Metrics

	mu           sync.RWMutex
	lastWriteSHA string
}

// LastWriteSHA returns the SHA-256 of the most recent document this
// Mutator wrote, so the watcher can distinguish its own write echo
// from an out-of-band edit (§4.8).
func (m *Mutator) LastWriteSHA() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastWriteSHA
}

// New constructs a Mutator with the given sync timeout.
func New(store Store, engine Engine, client remoteapi.Client, syncTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{Store: store, Engine: engine, Client: client, SyncTimeout: syncTimeout, Logger: logger, Metrics: m}
}

// SwapState runs the full transaction: read -> apply f -> validate ->
// lock -> sync -> write -> clear lock, releasing the lock on every
// exit path (§4.7).
func (m *Mutator) SwapState(ctx context.Context, reason string, f Mutation) Result {
	lockInfo, err := m.Store.ReadLock()
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	if lockInfo.Locked {
		if m.Metrics != nil {
			m.Metrics.LockContention.Inc()
		}
		return Result{Errors: []string{(&document.LockHeldError{Reason: lockInfo.Reason, HumanReadable: lockInfo.HumanReadable}).Error()}}
	}

	current, err := m.Store.Read()
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}

	candidate := f(current)

	if result := document.Validate(candidate); !result.OK() {
		errs := make([]string, len(result.Issues))
		for i, issue := range result.Issues {
			errs[i] = issue.String()
		}
		return Result{Errors: errs}
	}

	if err := m.Store.Lock(reason, m.SyncTimeout); err != nil {
		return Result{Errors: []string{fmt.Errorf("acquiring lock: %w", err).Error()}}
	}
	defer func() {
		if err := m.Store.ClearLock(); err != nil {
			m.Logger.Error("clearing lock failed", "error", err)
		}
	}()

	effective, report, err := m.Engine.Sync(ctx, candidate)
	if err != nil {
		return Result{Errors: []string{fmt.Errorf("sync: %w", err).Error()}}
	}

	written, err := m.Store.Write(effective)
	if err != nil {
		return Result{Errors: []string{fmt.Errorf("writing document: %w", err).Error()}}
	}
	m.mu.Lock()
	m.lastWriteSHA = written.SHA
	m.mu.Unlock()

	return Result{OK: true, State: written, Report: report}
}

// UpdatePassword bypasses the sync engine and the document entirely —
// passwords are never stored in the document (§1 Non-goals, §4.7). It
// verifies userID is currently managed before calling ChangePassword.
func (m *Mutator) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	current, err := m.Store.Read()
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	if !current.Tracking.ManagedMembers.Contains(userID) {
		return fmt.Errorf("user %q is not managed", userID)
	}
	if err := m.Client.ChangePassword(ctx, userID, newPassword); err != nil {
		return fmt.Errorf("changing password for %s: %w", userID, err)
	}
	return nil
}
