// Package bottest provides an in-memory fake of bot.Session for the
// bot package's own tests, mirroring remoteapitest.Fake's pattern of a
// hand-written recording fake instead of a mocking framework.
package bottest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/bot"
)

// Fake is a single-process, mutex-guarded fake XMPP session. Tests
// drive it by calling Deliver to simulate an incoming stanza and by
// asserting on Sent/Joined/Calls afterward.
type Fake struct {
	mu sync.Mutex

	ConnectErr error
	Resumed    bool

	Joined map[string]bool
	Sent   []SentMessage
	Calls  []string

	incoming chan bot.IncomingMessage
	closed   chan error
}

// SentMessage records one outbound DM or MUC message.
type SentMessage struct {
	ToJID string
	Body  string
	MUC   bool
}

// NewFake returns a Fake ready to Connect.
func NewFake() *Fake {
	return &Fake{
		Joined:   map[string]bool{},
		incoming: make(chan bot.IncomingMessage, 64),
		closed:   make(chan error, 1),
	}
}

var _ bot.Session = (*Fake)(nil)

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

func (f *Fake) Connect(_ context.Context, jid, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("connect:" + jid)
	if f.ConnectErr != nil {
		return false, f.ConnectErr
	}
	return f.Resumed, nil
}

func (f *Fake) JoinRoom(_ context.Context, roomJID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("join:%s:%s", roomJID, nick))
	f.Joined[roomJID] = true
	return nil
}

func (f *Fake) LeaveRoom(_ context.Context, roomJID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("leave:" + roomJID)
	delete(f.Joined, roomJID)
	return nil
}

func (f *Fake) SendDirect(_ context.Context, toJID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("send_direct:" + toJID)
	f.Sent = append(f.Sent, SentMessage{ToJID: toJID, Body: body})
	return nil
}

func (f *Fake) SendToRoom(_ context.Context, roomJID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("send_room:" + roomJID)
	f.Sent = append(f.Sent, SentMessage{ToJID: roomJID, Body: body, MUC: true})
	return nil
}

func (f *Fake) Incoming() <-chan bot.IncomingMessage { return f.incoming }
func (f *Fake) Closed() <-chan error                 { return f.closed }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("close")
	return nil
}

// Deliver pushes a stanza into the dispatcher's incoming channel as if
// it had just arrived over the wire.
func (f *Fake) Deliver(msg bot.IncomingMessage) {
	f.incoming <- msg
}

// CloseWith fires the Closed channel with err, simulating a dropped
// stream.
func (f *Fake) CloseWith(err error) {
	f.closed <- err
}
