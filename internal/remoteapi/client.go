// Package remoteapi is a thin typed facade over ejabberd's HTTP admin
// API and XEP-0048 bookmark storage (§4.3). It is a stateless client:
// every call takes a context.Context and respects a bounded
// per-request timeout (§5), and the engine/mutator depend on the
// Client interface rather than the concrete HTTP implementation so
// their tests run against an in-memory fake.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the full set of ejabberd admin operations the sync engine,
// admin bot, and mutator depend on (§4.3).
type Client interface {
	Register(ctx context.Context, user, password string) error
	ChangePassword(ctx context.Context, user, newPassword string) error
	Unregister(ctx context.Context, user string) error
	RegisteredUsers(ctx context.Context) ([]string, error)

	CreateRoom(ctx context.Context, name string) error
	CreateRoomWithOpts(ctx context.Context, name string, opts []RoomOpt) error
	DestroyRoom(ctx context.Context, roomID string) error
	MucOnlineRooms(ctx context.Context) ([]string, error)
	GetRoomOptions(ctx context.Context, roomID string) ([]RoomOpt, error)
	GetRoomAffiliations(ctx context.Context, roomID string) ([]Affiliation, error)
	SetRoomAffiliation(ctx context.Context, roomID, user, host, affiliation string) error

	GetRoster(ctx context.Context, user string) ([]RosterItem, error)
	AddRosterItem(ctx context.Context, localUser, localHost, user, host, nick string, groups []string, subscription string) error
	DeleteRosterItem(ctx context.Context, localUser, localHost, user, host string) error

	GetUserBookmarks(ctx context.Context, user string) ([]Bookmark, error)
	SetUserBookmarks(ctx context.Context, user string, bookmarks []Bookmark) error
}

// HTTPClient is the production Client backed by POST-JSON calls to
// ejabberd's HTTP admin API (§4.3, §6).
type HTTPClient struct {
	BaseURL    string
	XMPPDomain string
	MucService string
	Timeout    time.Duration
	HTTP       *http.Client
}

// NewHTTPClient constructs a client with a 10-second per-request
// timeout; callers may set Timeout when a different bound is needed
// (§4.3 implementation detail).
func NewHTTPClient(baseURL, xmppDomain, mucService string) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		XMPPDomain: xmppDomain,
		MucService: mucService,
		Timeout:    10 * time.Second,
		HTTP:       &http.Client{},
	}
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("remoteapi: marshaling %s payload: %w", endpoint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remoteapi: building request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("remoteapi: calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &ApiError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("remoteapi: decoding %s response: %w", endpoint, err)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, user, password string) error {
	return c.post(ctx, "register", map[string]string{
		"user": user, "host": c.XMPPDomain, "password": password,
	}, nil)
}

func (c *HTTPClient) ChangePassword(ctx context.Context, user, newPassword string) error {
	return c.post(ctx, "change_password", map[string]string{
		"user": user, "host": c.XMPPDomain, "newpass": newPassword,
	}, nil)
}

func (c *HTTPClient) Unregister(ctx context.Context, user string) error {
	return c.post(ctx, "unregister", map[string]string{
		"user": user, "host": c.XMPPDomain,
	}, nil)
}

func (c *HTTPClient) RegisteredUsers(ctx context.Context) ([]string, error) {
	var out struct {
		Users []string `json:"users"`
	}
	err := c.post(ctx, "registered_users", map[string]string{"host": c.XMPPDomain}, &out)
	return out.Users, err
}

func (c *HTTPClient) CreateRoom(ctx context.Context, name string) error {
	return c.post(ctx, "create_room", map[string]string{
		"name": name, "service": c.MucService, "host": c.XMPPDomain,
	}, nil)
}

func (c *HTTPClient) CreateRoomWithOpts(ctx context.Context, name string, opts []RoomOpt) error {
	payload := struct {
		Name    string        `json:"name"`
		Service string        `json:"service"`
		Host    string        `json:"host"`
		Options []optionPair  `json:"options"`
	}{Name: name, Service: c.MucService, Host: c.XMPPDomain, Options: toOptionPairs(opts)}
	return c.post(ctx, "create_room_with_opts", payload, nil)
}

type optionPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func toOptionPairs(opts []RoomOpt) []optionPair {
	out := make([]optionPair, len(opts))
	for i, o := range opts {
		out[i] = optionPair{Name: o.Name, Value: o.Value}
	}
	return out
}

func (c *HTTPClient) DestroyRoom(ctx context.Context, roomID string) error {
	return c.post(ctx, "destroy_room", map[string]string{
		"name": roomID, "service": c.MucService,
	}, nil)
}

func (c *HTTPClient) MucOnlineRooms(ctx context.Context) ([]string, error) {
	var out struct {
		Rooms []string `json:"rooms"`
	}
	err := c.post(ctx, "muc_online_rooms", map[string]string{"service": c.MucService}, &out)
	return out.Rooms, err
}

func (c *HTTPClient) GetRoomOptions(ctx context.Context, roomID string) ([]RoomOpt, error) {
	var out struct {
		Options []optionPair `json:"options"`
	}
	err := c.post(ctx, "get_room_options", map[string]string{
		"name": roomID, "service": c.MucService,
	}, &out)
	opts := make([]RoomOpt, len(out.Options))
	for i, o := range out.Options {
		opts[i] = RoomOpt{Name: o.Name, Value: o.Value}
	}
	return opts, err
}

func (c *HTTPClient) GetRoomAffiliations(ctx context.Context, roomID string) ([]Affiliation, error) {
	var out struct {
		Affiliations []struct {
			JID         string `json:"jid"`
			Affiliation string `json:"affiliation"`
		} `json:"affiliations"`
	}
	err := c.post(ctx, "get_room_affiliations", map[string]string{
		"name": roomID, "service": c.MucService,
	}, &out)
	affs := make([]Affiliation, len(out.Affiliations))
	for i, a := range out.Affiliations {
		affs[i] = Affiliation{JID: a.JID, Affiliation: a.Affiliation}
	}
	return affs, err
}

func (c *HTTPClient) SetRoomAffiliation(ctx context.Context, roomID, user, host, affiliation string) error {
	return c.post(ctx, "set_room_affiliation", map[string]string{
		"name": roomID, "service": c.MucService,
		"jid": user + "@" + host, "affiliation": affiliation,
	}, nil)
}

func (c *HTTPClient) GetRoster(ctx context.Context, user string) ([]RosterItem, error) {
	var out struct {
		Items []struct {
			JID          string   `json:"jid"`
			Nick         string   `json:"nick"`
			Groups       []string `json:"groups"`
			Subscription string   `json:"subscription"`
		} `json:"items"`
	}
	err := c.post(ctx, "get_roster", map[string]string{
		"user": user, "host": c.XMPPDomain,
	}, &out)
	items := make([]RosterItem, len(out.Items))
	for i, it := range out.Items {
		items[i] = RosterItem{JID: it.JID, Nick: it.Nick, Groups: it.Groups, Subscription: it.Subscription}
	}
	return items, err
}

func (c *HTTPClient) AddRosterItem(ctx context.Context, localUser, localHost, user, host, nick string, groups []string, subscription string) error {
	return c.post(ctx, "add_rosteritem", map[string]any{
		"localuser": localUser, "localserver": localHost,
		"user": user, "server": host,
		"nick": nick, "group": groups, "subs": subscription,
	}, nil)
}

func (c *HTTPClient) DeleteRosterItem(ctx context.Context, localUser, localHost, user, host string) error {
	return c.post(ctx, "delete_rosteritem", map[string]string{
		"localuser": localUser, "localserver": localHost,
		"user": user, "server": host,
	}, nil)
}

func (c *HTTPClient) GetUserBookmarks(ctx context.Context, user string) ([]Bookmark, error) {
	var out struct {
		Storage string `json:"storage"`
	}
	if err := c.post(ctx, "get_user_bookmarks", map[string]string{
		"user": user, "host": c.XMPPDomain,
	}, &out); err != nil {
		return nil, err
	}
	return ParseBookmarks(out.Storage)
}

func (c *HTTPClient) SetUserBookmarks(ctx context.Context, user string, bookmarks []Bookmark) error {
	return c.post(ctx, "set_user_bookmarks", map[string]string{
		"user": user, "host": c.XMPPDomain,
		"storage": MarshalBookmarks(bookmarks),
	}, nil)
}
