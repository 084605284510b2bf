// Package syncengine implements the eight-phase reconciliation between
// a document snapshot and the remote ejabberd server (§4.5). Sync is
// the only entry point; it never aborts mid-pass on a per-entity
// remote failure — it records the failure in the Report and continues
// — because a single bad entity must not block the rest of the
// convergence (§7).
package syncengine

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/membership"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/metrics"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
)

// Config carries the subset of lifecycle settings the engine needs
// (§6 "Configuration inputs to the core"), kept local to this package
// rather than importing internal/settings to avoid a dependency from
// the core reconciliation logic onto the process-wiring layer.
type Config struct {
	XMPPDomain          string
	MucService          string
	Env                 string // "dev", "test", "prod"
	DefaultTestPassword string
	ManagedMucOptions   map[string]string
}

// Notifier is the admin bot's half of phases 6 and 8: joining
// newly-created rooms and announcing affiliation transitions. It is
// defined here, not imported from internal/bot, so the engine has no
// dependency on the bot's XMPP machinery — the bot depends on the
// engine's types, not the other way around (§9 "wire it explicitly
// into the sync engine rather than referencing it globally").
type Notifier interface {
	JoinRoom(roomID string)
	AnnounceAffiliationChange(userID string, room document.Room, newAff membership.Affiliation)
	AnnounceRoomCreated(room document.Room)
}

// NopNotifier discards every notification; useful for tests and for a
// degraded-bot boot where the engine must still be able to sync.
type NopNotifier struct{}

func (NopNotifier) JoinRoom(string)                                                     {}
func (NopNotifier) AnnounceAffiliationChange(string, document.Room, membership.Affiliation) {}
func (NopNotifier) AnnounceRoomCreated(document.Room)                                    {}

// Engine is the sync engine (§4.5). It is stateless across calls other
// than the Notifier it was wired with; each Sync call builds its own
// lookup cache, per §4.5 implementation detail.
type Engine struct {
	Client   remoteapi.Client
	Config   Config
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// New constructs an Engine. If notifier is nil, NopNotifier is used.
// A nil Metrics is valid; Sync skips instrumentation in that case.
func New(client remoteapi.Client, cfg Config, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Client: client, Config: cfg, Notifier: notifier, Logger: logger, Metrics: m}
}

// Sync runs all eight phases against one document snapshot and
// returns the effective document (with auto-assigned room-ids and
// refreshed tracking) plus the change report (§4.5).
func (e *Engine) Sync(ctx context.Context, input document.Document) (document.Document, *Report, error) {
	start := time.Now()
	report := newReport()
	cache, err := lru.New[string, any](256)
	if err != nil {
		return document.Document{}, nil, fmt.Errorf("syncengine: allocating lookup cache: %w", err)
	}

	// Phase 1: ghost-include the bot, read previous tracking.
	prevTracking := input.Tracking
	working := input.GhostIncludeBot()

	// Phase 2: compute diffs.
	d := computeDiff(working, prevTracking)

	e.Logger.Info("sync starting",
		"users_to_add", len(d.usersToAdd), "users_to_delete", len(d.usersToDelete),
		"rooms_to_create", len(d.roomsToCreate), "rooms_to_delete", len(d.roomsToDelete),
	)

	// Phase 3: delete users.
	e.deleteUsers(ctx, &working, d, prevTracking, report)

	// Phase 4: delete rooms.
	e.deleteRooms(ctx, d, prevTracking, report)

	// Phase 5: register new users.
	e.registerUsers(ctx, d, report)

	// Phase 6: create rooms.
	e.createRooms(ctx, &working, report)

	// Phase 7: sync rosters.
	e.syncRosters(ctx, working, cache, report)

	// Phase 8: sync affiliations and bookmarks.
	e.syncAffiliationsAndBookmarks(ctx, working, cache, report)

	// Phase 9: update tracking.
	working.Tracking = buildTracking(working)

	// Phase 10: ghost-remove the bot.
	effective := working.GhostRemoveBot()

	e.Logger.Info("sync completed", "entries", len(report.Entries), "idempotent", report.Idempotent())

	if e.Metrics != nil {
		e.Metrics.SyncDuration.Observe(time.Since(start).Seconds())
		kinds := make([]string, len(report.Entries))
		for i, entry := range report.Entries {
			kinds[i] = entry.Kind
		}
		e.Metrics.RecordReport(kinds)
	}

	return effective, report, nil
}

// diff is the output of phase 2.
type diff struct {
	usersToAdd     []string
	usersToDelete  []string
	roomsToCreate  []int // indices into working.Rooms
	roomsToDelete  []string
}

func computeDiff(working document.Document, prevTracking document.Tracking) diff {
	current := document.NewStringSet()
	for _, m := range working.Members {
		current.Add(m.UserID)
	}
	currentRoomIDs := document.NewStringSet()
	for _, r := range working.Rooms {
		if r.RoomID != "" {
			currentRoomIDs.Add(r.RoomID)
		}
	}

	var d diff
	d.usersToAdd = current.Minus(prevTracking.ManagedMembers).Sorted()
	d.usersToDelete = prevTracking.ManagedMembers.Minus(current).Sorted()
	d.roomsToDelete = prevTracking.ManagedRoomIDs.Minus(currentRoomIDs).Sorted()
	for i, r := range working.Rooms {
		if r.RoomID == "" {
			d.roomsToCreate = append(d.roomsToCreate, i)
		}
	}
	return d
}

// buildTracking rebuilds do-not-edit-state from the working document.
// It skips the ghost-included admin bot: managed-members tracks only
// operator-visible members (§3, §8 invariant 2), the same reason phase
// 10 removes the bot from working.Members before persistence.
func buildTracking(working document.Document) document.Tracking {
	t := document.EmptyTracking()
	for _, m := range working.Members {
		if m.UserID == document.AdminUserID {
			continue
		}
		t.ManagedMembers.Add(m.UserID)
	}
	for _, r := range working.Rooms {
		if r.RoomID != "" {
			t.ManagedRoomIDs.Add(r.RoomID)
		}
	}
	for k := range working.Groups {
		t.ManagedGroups.Add(k.String())
	}
	t.AdminCreds = working.Tracking.AdminCreds
	return t
}

// generatePassword returns a random user password in production (a
// cryptographically strong base64 string of at least 24 bytes of
// entropy) or the configured fixed test password in dev/test — real
// user passwords are set later by an out-of-band signup flow (§4.5
// phase 5).
func (e *Engine) generatePassword() (string, error) {
	if e.Config.Env != "prod" {
		return e.Config.DefaultTestPassword, nil
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func jid(localPart, domain string) string {
	return localPart + "@" + domain
}

func (e *Engine) mucJID(roomID string) string {
	return jid(roomID, e.Config.MucService)
}

// defaultPhaseTimeout is not referenced by Sync, which sets no deadline
// of its own; each remote call is bounded by the client's per-request
// timeout instead (remoteapi.HTTPClient.Timeout, §5).
const defaultPhaseTimeout = 20 * time.Second
