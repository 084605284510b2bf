package bot

import "context"

// IncomingMessage is one parsed stanza the dispatcher acts on (§4.6).
type IncomingMessage struct {
	FromJID string // bare JID of the sender for a DM; the full occupant JID (room@service/nick) for a MUC message
	FromMUC bool
	RoomJID string // set when FromMUC; the room the message arrived in
	SelfMsg bool   // true when a MUC message originated from the bot itself
	Body    string
}

// Session is the bot's own dial/auth/join/send abstraction over the
// XMPP wire protocol (out of scope per §1; "treated as ... a
// long-lived XMPP client session"). MelliumSession is the production
// adapter onto mellium.im/xmpp; tests drive a fake implementation
// instead (bottest.Fake).
type Session interface {
	// Connect authenticates as jid/password and reports whether the
	// server resumed a prior stream (§4.6 "On authenticated resume").
	Connect(ctx context.Context, jid, password string) (resumed bool, err error)

	JoinRoom(ctx context.Context, roomJID, nick string) error
	LeaveRoom(ctx context.Context, roomJID string) error

	SendDirect(ctx context.Context, toJID, body string) error
	SendToRoom(ctx context.Context, roomJID, body string) error

	// Incoming delivers parsed DM/MUC messages until the session closes.
	Incoming() <-chan IncomingMessage
	// Closed fires once, with the error that closed the stream (nil on
	// a clean Close), so the bot's reconnection manager can react.
	Closed() <-chan error

	Close() error
}
