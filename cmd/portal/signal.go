package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/lifecycle"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
)

// signalHandler listens for SIGHUP and debounces it into a single
// reconverge-via-identity swapState call, adapted from the teacher's
// cmd/server/signal.go hot-reload handler (DESIGN.md): same
// signal-listener/reload-worker goroutine pair and debounce window,
// repurposed from "reload config from disk" to "reconverge the
// document".
type signalHandler struct {
	app    *lifecycle.App
	logger *slog.Logger

	debounceWindow time.Duration
	lastReload     atomic.Value // time.Time

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	sigChan    chan os.Signal
	reloadChan chan struct{}
}

func newSignalHandler(app *lifecycle.App, logger *slog.Logger) *signalHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &signalHandler{
		app:            app,
		logger:         logger,
		debounceWindow: time.Second,
		ctx:            ctx,
		cancel:         cancel,
		sigChan:        make(chan os.Signal, 1),
		reloadChan:     make(chan struct{}, 10),
	}
}

func (h *signalHandler) Start() {
	signal.Notify(h.sigChan, syscall.SIGHUP)
	h.wg.Add(2)
	go h.listen()
	go h.work()
}

func (h *signalHandler) Stop() {
	signal.Stop(h.sigChan)
	close(h.sigChan)
	h.cancel()
	h.wg.Wait()
}

func (h *signalHandler) listen() {
	defer h.wg.Done()
	for {
		select {
		case _, ok := <-h.sigChan:
			if !ok {
				return
			}
			select {
			case h.reloadChan <- struct{}{}:
			default:
				h.logger.Warn("sighup reload already queued, skipping")
			}
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *signalHandler) work() {
	defer h.wg.Done()
	for {
		select {
		case <-h.reloadChan:
			if h.shouldDebounce() {
				continue
			}
			h.lastReload.Store(time.Now())
			h.reconverge()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *signalHandler) shouldDebounce() bool {
	v := h.lastReload.Load()
	if v == nil {
		return false
	}
	return time.Since(v.(time.Time)) < h.debounceWindow
}

func (h *signalHandler) reconverge() {
	h.logger.Info("sighup received, reconverging")
	ctx, cancel := context.WithTimeout(h.ctx, 30*time.Second)
	defer cancel()
	result := h.app.Mutator.SwapState(ctx, "sighup refresh", mutator.Identity)
	if !result.OK {
		h.logger.Error("sighup reconverge failed", "errors", result.Errors)
	}
}
