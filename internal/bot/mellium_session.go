package bot

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"

	"mellium.im/sasl"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/dial"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/muc"
	"mellium.im/xmpp/mux"
	"mellium.im/xmpp/stanza"
)

// MelliumSession is the production Session backed by mellium.im/xmpp
// (DESIGN.md): no repo in the retrieved pack implements XMPP, so this
// is an out-of-pack dependency chosen over hand-rolling SASL/stanza
// framing, which the standard library has no support for at all.
type MelliumSession struct {
	domain string

	mu      sync.Mutex
	session *xmpp.Session
	mucCli  *muc.Client
	rooms   map[string]*muc.Channel

	incoming chan IncomingMessage
	closed   chan error
}

// NewMelliumSession constructs an unconnected session for the given
// XMPP domain; Connect dials and authenticates.
func NewMelliumSession(domain string) *MelliumSession {
	return &MelliumSession{
		domain:   domain,
		rooms:    make(map[string]*muc.Channel),
		incoming: make(chan IncomingMessage, 64),
		closed:   make(chan error, 1),
	}
}

func (m *MelliumSession) Connect(ctx context.Context, user, password string) (bool, error) {
	j, err := jid.Parse(user + "@" + m.domain)
	if err != nil {
		return false, fmt.Errorf("parsing bot jid: %w", err)
	}

	conn, err := dial.Client(ctx, "tcp", j)
	if err != nil {
		return false, &StreamError{Condition: "dial-failed", Err: err}
	}

	session, err := xmpp.NewSession(ctx, j.Domain(), j, conn, 0,
		xmpp.NewNegotiator(xmpp.StreamConfig{
			Features: []xmpp.StreamFeature{
				xmpp.BindResource(),
				xmpp.SASL("", password, sasl.ScramSha256, sasl.ScramSha1, sasl.Plain),
			},
		}),
	)
	if err != nil {
		if isAuthFailure(err) {
			return false, &AuthFailureError{JID: j.String(), Err: err}
		}
		return false, &StreamError{Condition: "negotiation-failed", Err: err}
	}

	m.mu.Lock()
	m.session = session
	m.mucCli = &muc.Client{}
	resumed := session.State()&xmpp.Resumed == xmpp.Resumed
	m.mu.Unlock()

	go m.serve(session)

	return resumed, nil
}

func (m *MelliumSession) serve(session *xmpp.Session) {
	handler := mux.New(stanza.NSClient,
		mux.MessageFunc(stanza.ChatMessage, xml.Name{Local: "body"}, m.handleDirect),
		mux.MessageFunc(stanza.GroupChatMessage, xml.Name{Local: "body"}, m.handleMUC),
	)
	err := session.Serve(handler)
	m.closed <- err
}

func (m *MelliumSession) handleDirect(msg stanza.Message, t xmlstream.TokenReadEncoder) error {
	body := decodeBody(t)
	m.incoming <- IncomingMessage{FromJID: msg.From.Bare().String(), Body: body}
	return nil
}

func (m *MelliumSession) handleMUC(msg stanza.Message, t xmlstream.TokenReadEncoder) error {
	body := decodeBody(t)
	roomJID := msg.From.Bare().String()
	self := m.isSelf(roomJID, msg.From.Resourcepart())
	m.incoming <- IncomingMessage{FromJID: msg.From.String(), FromMUC: true, RoomJID: roomJID, SelfMsg: self, Body: body}
	return nil
}

func decodeBody(t xmlstream.TokenReadEncoder) string {
	var payload struct {
		Body string `xml:"body"`
	}
	_ = xml.NewTokenDecoder(t).Decode(&payload)
	return payload.Body
}

func (m *MelliumSession) isSelf(roomJID, nick string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.rooms[roomJID]
	return ok && ch.Nick() == nick
}

func (m *MelliumSession) JoinRoom(ctx context.Context, roomJID, nick string) error {
	j, err := jid.Parse(roomJID + "/" + nick)
	if err != nil {
		return fmt.Errorf("parsing room jid: %w", err)
	}

	m.mu.Lock()
	session, mucCli := m.session, m.mucCli
	m.mu.Unlock()
	if session == nil || mucCli == nil {
		return fmt.Errorf("session not connected")
	}

	channel, err := mucCli.Join(ctx, j, session)
	if err != nil {
		return fmt.Errorf("joining %s: %w", roomJID, err)
	}

	m.mu.Lock()
	m.rooms[roomJID] = channel
	m.mu.Unlock()
	return nil
}

func (m *MelliumSession) LeaveRoom(ctx context.Context, roomJID string) error {
	m.mu.Lock()
	channel, ok := m.rooms[roomJID]
	delete(m.rooms, roomJID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return channel.Leave(ctx, "")
}

func (m *MelliumSession) SendDirect(ctx context.Context, toJID, body string) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return fmt.Errorf("session not connected")
	}
	to, err := jid.Parse(toJID)
	if err != nil {
		return fmt.Errorf("parsing recipient jid: %w", err)
	}
	msg := stanza.Message{To: to, Type: stanza.ChatMessage}
	return session.Encode(ctx, struct {
		stanza.Message
		Body string `xml:"body"`
	}{Message: msg, Body: body})
}

func (m *MelliumSession) SendToRoom(ctx context.Context, roomJID, body string) error {
	m.mu.Lock()
	session := m.session
	_, ok := m.rooms[roomJID]
	m.mu.Unlock()
	if !ok || session == nil {
		return fmt.Errorf("not joined to room %s", roomJID)
	}
	to, err := jid.Parse(roomJID)
	if err != nil {
		return fmt.Errorf("parsing room jid: %w", err)
	}
	msg := stanza.Message{To: to, Type: stanza.GroupChatMessage}
	return session.Encode(ctx, struct {
		stanza.Message
		Body string `xml:"body"`
	}{Message: msg, Body: body})
}

func (m *MelliumSession) Incoming() <-chan IncomingMessage { return m.incoming }
func (m *MelliumSession) Closed() <-chan error             { return m.closed }

func (m *MelliumSession) Close() error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

// isAuthFailure distinguishes a SASL authentication rejection from
// any other stream-negotiation failure (§4.6, §7): the former
// triggers one password-reset retry, the latter (e.g. a stream-level
// policy violation) does not.
func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not-authorized") || strings.Contains(msg, "sasl")
}
