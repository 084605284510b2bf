package main

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/lifecycle"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi/remoteapitest"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/syncengine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestApp(t *testing.T) *lifecycle.App {
	t.Helper()
	store, err := document.NewStore(t.TempDir())
	require.NoError(t, err)
	fake := remoteapitest.NewFake()
	engine := syncengine.New(fake, syncengine.Config{
		XMPPDomain: "example.org", MucService: "conference.example.org",
		Env: "test", DefaultTestPassword: "pw",
	}, nil, nil, nil)
	return &lifecycle.App{Mutator: mutator.New(store, engine, fake, time.Minute, testLogger(), nil), Store: store, Logger: testLogger()}
}

func TestNewSignalHandler_InitializesFields(t *testing.T) {
	app := newTestApp(t)
	h := newSignalHandler(app, testLogger())

	assert.NotNil(t, h.app)
	assert.NotNil(t, h.logger)
	assert.Equal(t, time.Second, h.debounceWindow)
	assert.NotNil(t, h.ctx)
	assert.NotNil(t, h.cancel)
	assert.NotNil(t, h.sigChan)
	assert.NotNil(t, h.reloadChan)
}

func TestSignalHandler_ReconvergeKeepsDocumentReadable(t *testing.T) {
	app := newTestApp(t)
	h := newSignalHandler(app, testLogger())

	h.reconverge()

	doc, err := app.Store.Read()
	require.NoError(t, err)
	assert.NotEmpty(t, doc.SHA)
}

func TestSignalHandler_ShouldDebounceWithinWindow(t *testing.T) {
	app := newTestApp(t)
	h := newSignalHandler(app, testLogger())
	h.debounceWindow = time.Minute

	assert.False(t, h.shouldDebounce())
	h.lastReload.Store(time.Now())
	assert.True(t, h.shouldDebounce())
}

func TestSignalHandler_StartStopIsClean(t *testing.T) {
	app := newTestApp(t)
	h := newSignalHandler(app, testLogger())
	h.Start()
	h.Stop()
}
