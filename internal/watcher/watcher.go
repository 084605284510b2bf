// Package watcher detects out-of-band edits to the configuration
// document and invokes the mutator with identity to reconverge
// (§4.8). It is built on fsnotify watching the containing directory —
// not the file directly — because editors that save via
// rename-into-place (the common case) would otherwise drop the watch
// on the old inode (DESIGN.md, grounded on the only fsnotify usage
// site in the retrieved pack).
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
)

// primaryFilename is the only filename within dbFolder the watcher
// reacts to; it must match document.Store's primary file.
const primaryFilename = "userdb.edn"

// debounceWindow coalesces the write+rename event pair most editors
// produce for a single logical save into one swapState call — the
// same shape as the teacher's SIGHUP debounce window
// (cmd/server/signal.go, DESIGN.md).
const debounceWindow = 300 * time.Millisecond

// Store is the subset of document.Store the watcher needs to suppress
// self-write echoes and no-op edits.
type Store interface {
	ReadLock() (document.LockInfo, error)
	CurrentSha() (string, error)
}

// Mutator is the subset of mutator.Mutator the watcher invokes.
type Mutator interface {
	SwapState(ctx context.Context, reason string, f mutator.Mutation) mutator.Result
	LastWriteSHA() string
}

// Watcher watches dbFolder for changes to the primary document file.
type Watcher struct {
	dbFolder string
	store    Store
	mut      Mutator
	logger   *slog.Logger

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Watcher bound to dbFolder. Call Start to begin
// watching.
func New(dbFolder string, store Store, mut Mutator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dbFolder); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dbFolder: dbFolder,
		store:    store,
		mut:      mut,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Start launches the watch loop in a goroutine. Stop halts it and
// releases the fsnotify handle.
func (w *Watcher) Start() {
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop()
}

// Stop halts the watch loop and blocks until it has exited, then
// releases the underlying fsnotify watch (§9.1 Suspend).
func (w *Watcher) Stop() error {
	if w.stopCh != nil {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	var pending bool
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != primaryFilename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = true
			timer.Reset(debounceWindow)
		case <-timer.C:
			if pending {
				pending = false
				w.handleChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleChange() {
	lockInfo, err := w.store.ReadLock()
	if err != nil {
		w.logger.Error("checking lock before reacting to file change", "error", err)
		return
	}
	if lockInfo.Locked {
		// We are the writer; this event is our own in-flight write.
		return
	}

	sha, err := w.store.CurrentSha()
	if err != nil {
		w.logger.Error("computing sha after file change", "error", err)
		return
	}
	if sha == w.mut.LastWriteSHA() {
		// Self-write echo, or a no-op edit that round-trips identically.
		return
	}

	w.logger.Info("detected out-of-band document edit, reconverging")
	result := w.mut.SwapState(context.Background(), "filesystem change", mutator.Identity)
	if !result.OK {
		w.logger.Error("reconverge after file change failed", "errors", result.Errors)
	}
}
