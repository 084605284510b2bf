package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
)

// commandPattern is the "bot <verb> ..." grammar (§4.6 "Command
// dispatch"): an optional-whitespace-separated "bot" token followed by
// the verb phrase.
var commandPattern = regexp.MustCompile(`(?i)^\s*bot\s*(.*)$`)

// handleIncoming routes one parsed stanza to the command dispatcher.
// MUC messages the bot itself authored are dropped unconditionally —
// the bot never reacts to its own room echoes (§4.6).
func (b *Bot) handleIncoming(ctx context.Context, msg IncomingMessage) {
	if msg.FromMUC && msg.SelfMsg {
		return
	}

	match := commandPattern.FindStringSubmatch(msg.Body)
	if match == nil {
		return
	}
	verb := strings.TrimSpace(match[1])

	reply := b.dispatch(ctx, msg, verb)
	if reply == "" {
		return
	}
	if msg.FromMUC {
		b.sendToRoom(roomLocalPart(msg.RoomJID), reply)
	} else {
		b.sendDM(localPart(msg.FromJID), reply)
	}
}

// dispatch implements the verb table. It never panics on an
// unrecognized verb; the default case falls through to help text.
func (b *Bot) dispatch(ctx context.Context, msg IncomingMessage, verb string) string {
	fields := strings.Fields(verb)
	if len(verb) == 0 {
		return helpText()
	}

	switch {
	case verb == "status":
		return b.commandStatus()
	case strings.HasPrefix(verb, "create meet"):
		name := strings.TrimSpace(strings.TrimPrefix(verb, "create meet"))
		return b.commandCreateMeet(ctx, name)
	case verb == "login user admin":
		return b.commandLoginUserAdmin(msg)
	case verb == "login ej admin":
		return b.commandLoginEjAdmin(msg)
	default:
		_ = fields
		return helpText()
	}
}

func helpText() string {
	return "Commands: bot status | bot create meet <name> | bot login user admin | bot login ej admin"
}

func (b *Bot) commandStatus() string {
	degraded, why := b.Degraded()
	if degraded {
		return fmt.Sprintf("degraded: %s", why)
	}
	return "connected"
}

// commandCreateMeet records a meeting-room request. The bot itself
// does not create rooms directly — it appends the room to the document
// through SwapState, whose sync creates it through the normal
// room-creation phase (§4.5 phase 6), keeping room creation on a
// single code path.
func (b *Bot) commandCreateMeet(ctx context.Context, name string) string {
	if name == "" {
		return "usage: bot create meet <name>"
	}
	if b.mutator == nil {
		return "meeting creation is not available right now"
	}
	result := b.mutator.SwapState(ctx, fmt.Sprintf("bot create meet %q", name), func(d document.Document) document.Document {
		d.Rooms = append(d.Rooms, document.Room{
			Name:    name,
			Members: document.NewKeySet(document.GroupOwner),
			Admins:  document.NewKeySet(document.GroupOwner),
		})
		return d
	})
	if !result.OK {
		return fmt.Sprintf("could not request room: %v", result.Errors)
	}
	if b.cfg.JitsiBaseURL == "" {
		return fmt.Sprintf("room %q requested and synced", name)
	}
	return fmt.Sprintf("room %q requested and synced: %s/%s",
		name, strings.TrimRight(b.cfg.JitsiBaseURL, "/"), document.KebabCase(name))
}

// commandLoginUserAdmin is gated to group/owner members and reveals
// nothing to anyone else (§4.6 "owner-only commands").
func (b *Bot) commandLoginUserAdmin(msg IncomingMessage) string {
	if !b.isOwner(msg) {
		return "that command is restricted to owners"
	}
	return "use your existing portal credentials to sign in"
}

// commandLoginEjAdmin reveals the bot's own ejabberd admin credentials
// and console URL, gated to group/owner (§4.6).
func (b *Bot) commandLoginEjAdmin(msg IncomingMessage) string {
	if !b.isOwner(msg) {
		return "that command is restricted to owners"
	}
	creds, found, err := readAdminCredentials(b.store)
	if err != nil || !found {
		return "admin credentials are not available yet"
	}
	return fmt.Sprintf("ejabberd admin console: %s\nuser: %s\npassword: %s", b.cfg.AdminConsoleURL, creds.Username, creds.Password)
}

func (b *Bot) isOwner(msg IncomingMessage) bool {
	if b.docs == nil {
		return false
	}
	doc, err := b.docs.Read()
	if err != nil {
		return false
	}
	userID := localPart(msg.FromJID)
	member, ok := doc.MemberByUserID(userID)
	if !ok {
		return false
	}
	return member.Groups.Contains(document.GroupOwner)
}

func localPart(bareJID string) string {
	if idx := strings.IndexByte(bareJID, '@'); idx >= 0 {
		return bareJID[:idx]
	}
	return bareJID
}

func roomLocalPart(roomJID string) string {
	return localPart(roomJID)
}
