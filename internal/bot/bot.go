// Package bot implements the admin bot: the long-lived privileged
// XMPP client that participates in every managed room, self-heals its
// own credentials, rejoins rooms on reconnect, and dispatches
// DM/MUC commands (§4.6).
package bot

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/membership"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/metrics"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/mutator"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
)

// Config is the subset of lifecycle settings the bot needs.
type Config struct {
	XMPPDomain       string
	MucService       string
	AdminConsoleURL  string
	JitsiBaseURL     string // used to render "create meet" join links
}

// Bot is the admin bot component (§4.6). It owns one Session at a
// time; Start blocks running the connect/reconnect loop until ctx is
// cancelled.
type Bot struct {
	cfg        Config
	client     remoteapi.Client
	store      CredentialStore
	docs       DocumentReader
	mutator    *mutator.Mutator
	newSession func() Session
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu           sync.Mutex
	session      Session
	joinedRooms  map[string]bool
	degraded     bool
	degradedWhy  string
	didAuthRetry bool
}

// DocumentReader is the read-only slice of the store the bot needs to
// gate owner-only commands and to list the rooms to rejoin on resume.
type DocumentReader interface {
	Read() (document.Document, error)
}

// New constructs a Bot. newSession is a factory rather than a single
// instance because each reconnect attempt needs a fresh Session.
func New(cfg Config, client remoteapi.Client, store CredentialStore, docs DocumentReader, mut *mutator.Mutator, newSession func() Session, logger *slog.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		cfg:         cfg,
		client:      client,
		store:       store,
		docs:        docs,
		mutator:     mut,
		newSession:  newSession,
		logger:      logger,
		metrics:     m,
		joinedRooms: make(map[string]bool),
	}
}

// Start bootstraps credentials, connects, and runs the reconnect loop
// until ctx is cancelled, then returns nil. It does not return an
// error for a degraded connection (§4.6, §7) — only when credential
// bootstrap fails before the first connect.
func (b *Bot) Start(ctx context.Context) error {
	creds, err := b.bootstrapCredentials(ctx)
	if err != nil {
		return fmt.Errorf("bootstrapping admin credentials: %w", err)
	}

	backoff := newBackoff()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		session := b.newSession()
		resumed, err := session.Connect(ctx, document.AdminUserID, creds.Password)
		if err != nil {
			if authErr, ok := err.(*AuthFailureError); ok && !b.didAuthRetry {
				b.didAuthRetry = true
				b.logger.Warn("bot auth failure, resetting password and retrying once", "error", authErr)
				if b.metrics != nil {
					b.metrics.BotAuthFailures.WithLabelValues("sasl").Inc()
				}
				newCreds, resetErr := b.resetPassword(ctx)
				if resetErr != nil {
					b.logger.Error("password reset failed", "error", resetErr)
					b.enterDegraded(resetErr.Error())
					b.sleep(ctx, backoff.next())
					continue
				}
				creds = newCreds
				continue
			}
			if _, ok := err.(*StreamError); ok {
				b.logger.Error("bot stream error, not retrying auth", "error", err)
				if b.metrics != nil {
					b.metrics.BotAuthFailures.WithLabelValues("stream-policy").Inc()
				}
				b.enterDegraded(err.Error())
				b.sleep(ctx, backoff.next())
				continue
			}
			b.logger.Error("bot connect failed", "error", err)
			b.sleep(ctx, backoff.next())
			continue
		}

		b.didAuthRetry = false
		b.leaveDegraded()
		backoff.reset()

		b.mu.Lock()
		b.session = session
		b.mu.Unlock()

		if resumed {
			b.rejoinUntracked(ctx)
		} else {
			b.mu.Lock()
			b.joinedRooms = make(map[string]bool)
			b.mu.Unlock()
		}

		b.dispatchLoop(ctx, session)

		if b.metrics != nil {
			b.metrics.BotReconnects.Inc()
		}

		select {
		case <-ctx.Done():
			_ = session.Close()
			return nil
		default:
			b.sleep(ctx, backoff.next())
		}
	}
}

func (b *Bot) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (b *Bot) enterDegraded(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.degraded = true
	b.degradedWhy = reason
}

func (b *Bot) leaveDegraded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.degraded = false
	b.degradedWhy = ""
}

// Degraded reports whether bootstrap last failed to fully recover —
// the bot stays alive without aborting process startup (§4.6, §7).
func (b *Bot) Degraded() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.degraded, b.degradedWhy
}

func (b *Bot) bootstrapCredentials(ctx context.Context) (document.AdminCredentials, error) {
	creds, found, err := readAdminCredentials(b.store)
	if err != nil {
		return document.AdminCredentials{}, err
	}
	if found {
		return creds, nil
	}

	users, err := b.client.RegisteredUsers(ctx)
	if err != nil {
		return document.AdminCredentials{}, fmt.Errorf("listing registered users: %w", err)
	}
	known := false
	for _, u := range users {
		if u == document.AdminUserID {
			known = true
			break
		}
	}

	password, err := randomPassword()
	if err != nil {
		return document.AdminCredentials{}, err
	}
	if !known {
		if err := b.client.Register(ctx, document.AdminUserID, password); err != nil {
			return document.AdminCredentials{}, fmt.Errorf("registering bot user: %w", err)
		}
	} else {
		if err := b.client.ChangePassword(ctx, document.AdminUserID, password); err != nil {
			return document.AdminCredentials{}, fmt.Errorf("setting bot password: %w", err)
		}
	}

	creds = document.AdminCredentials{Username: document.AdminUserID, Password: password}
	if err := writeAdminCredentials(b.store, creds); err != nil {
		return document.AdminCredentials{}, err
	}
	return creds, nil
}

func (b *Bot) resetPassword(ctx context.Context) (document.AdminCredentials, error) {
	password, err := randomPassword()
	if err != nil {
		return document.AdminCredentials{}, err
	}
	if err := b.client.ChangePassword(ctx, document.AdminUserID, password); err != nil {
		return document.AdminCredentials{}, fmt.Errorf("resetting bot password: %w", err)
	}
	creds := document.AdminCredentials{Username: document.AdminUserID, Password: password}
	if err := writeAdminCredentials(b.store, creds); err != nil {
		return document.AdminCredentials{}, err
	}
	return creds, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating bot password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// rejoinUntracked rejoins every configured room whose stable id is
// not already tracked as joined (§4.6 "Connection listener").
func (b *Bot) rejoinUntracked(ctx context.Context) {
	doc, err := b.docs.Read()
	if err != nil {
		b.logger.Error("reading document to rejoin rooms", "error", err)
		return
	}
	for _, r := range doc.Rooms {
		if r.RoomID == "" {
			continue
		}
		b.JoinRoom(r.RoomID)
	}
	_ = ctx
}

// JoinRoom implements syncengine.Notifier: join on demand without
// re-joining rooms already tracked as joined (§4.5 phase 6, §4.6).
func (b *Bot) JoinRoom(roomID string) {
	b.mu.Lock()
	if b.joinedRooms[roomID] {
		b.mu.Unlock()
		return
	}
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return
	}

	roomJID := roomID + "@" + b.cfg.MucService
	if err := session.JoinRoom(context.Background(), roomJID, document.AdminUserID); err != nil {
		b.logger.Error("joining room", "room", roomID, "error", err)
		return
	}

	b.mu.Lock()
	b.joinedRooms[roomID] = true
	b.mu.Unlock()
}

// AnnounceAffiliationChange implements syncengine.Notifier (§4.5
// phase 8).
func (b *Bot) AnnounceAffiliationChange(userID string, room document.Room, newAff membership.Affiliation) {
	joinURL := fmt.Sprintf("xmpp:%s@%s?join", room.RoomID, b.cfg.MucService)
	text := affiliationChangeMessage(room.Name, joinURL, newAff)
	b.sendDM(userID, text)
}

// AnnounceRoomCreated implements syncengine.Notifier (§4.5 phase 6).
func (b *Bot) AnnounceRoomCreated(room document.Room) {
	b.sendToRoom(room.RoomID, roomCreatedMessage(room.Name))
}

// sendDM constructs the target JID from the configured xmppDomain and
// sends via the session. Messages targeted at the bot's own user-id
// are dropped to prevent self-notification loops (§4.6 "Send path").
func (b *Bot) sendDM(userID, text string) {
	if userID == document.AdminUserID {
		return
	}
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return
	}
	toJID := userID + "@" + b.cfg.XMPPDomain
	if err := session.SendDirect(context.Background(), toJID, text); err != nil {
		b.logger.Warn("sending dm", "to", userID, "error", err)
	}
}

func (b *Bot) sendToRoom(roomID, text string) {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return
	}
	roomJID := roomID + "@" + b.cfg.MucService
	if err := session.SendToRoom(context.Background(), roomJID, text); err != nil {
		b.logger.Warn("sending muc message", "room", roomID, "error", err)
	}
}

func (b *Bot) dispatchLoop(ctx context.Context, session Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-session.Incoming():
			if !ok {
				return
			}
			b.handleIncoming(ctx, msg)
		case err, ok := <-session.Closed():
			if ok && err != nil {
				b.logger.Warn("xmpp session closed", "error", err)
			}
			return
		}
	}
}

// backoff implements the random-increasing reconnect backoff (§4.6
// "Connection listener").
type backoff struct {
	attempt int
}

func newBackoff() *backoff { return &backoff{} }

func (b *backoff) next() time.Duration {
	b.attempt++
	base := time.Duration(b.attempt) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) + 1))
	return base + jitter
}

func (b *backoff) reset() { b.attempt = 0 }
