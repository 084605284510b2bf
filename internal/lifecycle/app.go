// Package lifecycle wires the component graph — document store,
// remote API client, sync engine, admin bot, and file watcher — in
// the init order §9.1 requires, and implements Init/Halt/Suspend/
// Resume, grounded on the teacher's reload_coordinator.go phase
// structure (read -> validate -> apply -> reload components ->
// health check) repurposed as a one-time startup sequence plus two
// runtime transitions instead of a single reload call (DESIGN.md).
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/bot"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/logging"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/metrics"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/settings"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/syncengine"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/watcher"
)

// App owns the full component graph for one running process.
type App struct {
	Settings settings.Settings
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	Store   *document.Store
	Client  remoteapi.Client
	Engine  *syncengine.Engine
	Mutator *mutator.Mutator
	Bot     *bot.Bot
	Watcher *watcher.Watcher

	botCancel context.CancelFunc
	suspended bool
}

// New builds the component graph from settings without starting
// anything (§9.1 "Init"). Call Init to bring it up.
func New(s settings.Settings) (*App, error) {
	logger := logging.New(logging.Config{
		Level:    s.LogLevel,
		Format:   s.LogFormat,
		Output:   s.LogOutput,
		Filename: s.LogFile,
	})
	m := metrics.New()

	store, err := document.NewStore(s.DBFolder)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	client := remoteapi.NewHTTPClient(s.AdminAPIURL, s.XMPPDomain, s.MucService)

	app := &App{
		Settings: s,
		Logger:   logger,
		Metrics:  m,
		Store:    store,
		Client:   client,
	}

	engineCfg := syncengine.Config{
		XMPPDomain:          s.XMPPDomain,
		MucService:          s.MucService,
		Env:                 s.Env,
		DefaultTestPassword: s.DefaultTestPassword,
		ManagedMucOptions:   s.ManagedMucOptions,
	}

	// The bot is the engine's Notifier, but the engine must exist
	// before the bot can be constructed (the bot holds the mutator,
	// which holds the engine) — so wire a placeholder first and swap
	// it once the bot exists (DESIGN.md).
	app.Engine = syncengine.New(client, engineCfg, syncengine.NopNotifier{}, logger, m)
	app.Mutator = mutator.New(store, app.Engine, client, s.SyncTimeout(), logger, m)

	botCfg := bot.Config{
		XMPPDomain:      s.XMPPDomain,
		MucService:      s.MucService,
		AdminConsoleURL: s.AdminConsoleURL,
	}
	app.Bot = bot.New(botCfg, client, store, store, app.Mutator, func() bot.Session {
		return bot.NewMelliumSession(s.XMPPDomain)
	}, logger, m)
	app.Engine.Notifier = app.Bot

	w, err := watcher.New(s.DBFolder, store, app.Mutator, logger)
	if err != nil {
		return nil, fmt.Errorf("starting watcher: %w", err)
	}
	app.Watcher = w

	return app, nil
}

// Init runs the bot's connect loop in the background, starts the file
// watcher, and runs one initial sync (§9.1). Init returns once that
// sync has finished; a failed initial sync is logged, not returned.
func (a *App) Init(ctx context.Context) error {
	botCtx, cancel := context.WithCancel(ctx)
	a.botCancel = cancel
	go func() {
		if err := a.Bot.Start(botCtx); err != nil {
			a.Logger.Error("admin bot exited", "error", err)
		}
	}()

	a.Watcher.Start()

	result := a.Mutator.SwapState(ctx, "initial sync", mutator.Identity)
	if !result.OK {
		a.Logger.Error("initial sync failed", "errors", result.Errors)
	}
	return nil
}

// Halt stops the watcher and disconnects the bot, releasing every
// resource Init acquired.
func (a *App) Halt(ctx context.Context) error {
	if a.botCancel != nil {
		a.botCancel()
	}
	if err := a.Watcher.Stop(); err != nil {
		return fmt.Errorf("stopping watcher: %w", err)
	}
	return nil
}

// Suspend stops reacting to filesystem changes while keeping the
// bot's XMPP session connected (§9.1 "Suspend / Resume" — distinct
// from Halt, which tears down the XMPP session too).
func (a *App) Suspend() error {
	if a.suspended {
		return nil
	}
	if err := a.Watcher.Stop(); err != nil {
		return fmt.Errorf("stopping watcher: %w", err)
	}
	a.suspended = true
	return nil
}

// Resume restarts the watcher and reconverges once, treating a
// lock-held response as a harmless no-op rather than an error — a
// concurrent mutation already in flight will reconverge on its own
// (§9.1).
func (a *App) Resume(ctx context.Context) error {
	if !a.suspended {
		return nil
	}
	w, err := watcher.New(a.Settings.DBFolder, a.Store, a.Mutator, a.Logger)
	if err != nil {
		return fmt.Errorf("restarting watcher: %w", err)
	}
	a.Watcher = w
	a.Watcher.Start()
	a.suspended = false

	result := a.Mutator.SwapState(ctx, "resume", mutator.Identity)
	if !result.OK {
		a.Logger.Warn("resume reconverge did not succeed", "errors", result.Errors)
	}
	return nil
}
