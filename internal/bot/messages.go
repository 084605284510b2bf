package bot

import (
	"bytes"
	"text/template"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/membership"
)

// messageTemplates holds one small named text/template per event kind
// — adapted from the teacher's per-channel default template files
// (internal/notification/template/defaults/slack.go,
// defaults/pagerduty.go, DESIGN.md): same "one small named template
// per event kind, rendered with a typed data struct" shape, repurposed
// from alert copy to membership-change copy.
var messageTemplates = map[string]*template.Template{
	"joined-as-member": template.Must(template.New("joined-as-member").Parse(
		"You're now a member of \"{{.RoomName}}\". Join here: {{.JoinURL}}")),
	"joined-as-admin": template.Must(template.New("joined-as-admin").Parse(
		"You're now an admin of \"{{.RoomName}}\". Join here: {{.JoinURL}}")),
	"joined-as-owner": template.Must(template.New("joined-as-owner").Parse(
		"You're now the owner of \"{{.RoomName}}\". Join here: {{.JoinURL}}")),
	"removed": template.Must(template.New("removed").Parse(
		"You've been removed from \"{{.RoomName}}\".")),
	"room-created": template.Must(template.New("room-created").Parse(
		"Room \"{{.RoomName}}\" has been created.")),
}

// affiliationData is rendered into the affiliation-change templates.
type affiliationData struct {
	RoomName string
	JoinURL  string
}

// affiliationChangeMessage renders the DM announcing an affiliation
// transition (§4.5 phase 8, §4.6).
func affiliationChangeMessage(roomName, joinURL string, newAff membership.Affiliation) string {
	kind := "removed"
	switch newAff {
	case membership.Owner:
		kind = "joined-as-owner"
	case membership.Admin:
		kind = "joined-as-admin"
	case membership.Member:
		kind = "joined-as-member"
	}
	return render(kind, affiliationData{RoomName: roomName, JoinURL: joinURL})
}

// roomCreatedMessage renders the message the bot posts into a newly
// created room (§4.5 phase 6).
func roomCreatedMessage(roomName string) string {
	return render("room-created", affiliationData{RoomName: roomName})
}

func render(kind string, data any) string {
	tmpl, ok := messageTemplates[kind]
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
