package remoteapi

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MarshalBookmarks renders a set of bookmarks as the XEP-0048
// "<storage xmlns=\"storage:bookmarks\">" XML payload setUserBookmarks
// sends to the admin API, with attribute values XML-escaped (§6).
// Bookmarks are emitted sorted by JID so the serialized form is
// deterministic and comparable across syncs (§4.5 phase 8).
func MarshalBookmarks(bookmarks []Bookmark) string {
	sorted := make([]Bookmark, len(bookmarks))
	copy(sorted, bookmarks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].JID < sorted[j].JID })

	var b strings.Builder
	b.WriteString(`<storage xmlns="storage:bookmarks">` + "\n")
	for _, bm := range sorted {
		b.WriteString("  <conference")
		b.WriteString(" jid=\"" + escapeAttr(bm.JID) + "\"")
		b.WriteString(" autojoin=\"" + boolAttr(bm.Autojoin) + "\"")
		b.WriteString(" name=\"" + escapeAttr(bm.Name) + "\"")
		if bm.Nick != "" {
			b.WriteString(">")
			b.WriteString("<nick>" + escapeText(bm.Nick) + "</nick>")
			b.WriteString("</conference>\n")
		} else {
			b.WriteString("/>\n")
		}
	}
	b.WriteString("</storage>\n")
	return b.String()
}

func boolAttr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func escapeAttr(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

func escapeText(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}

type bookmarkStorage struct {
	XMLName     xml.Name          `xml:"storage"`
	Conferences []bookmarkConference `xml:"conference"`
}

type bookmarkConference struct {
	JID      string `xml:"jid,attr"`
	Autojoin string `xml:"autojoin,attr"`
	Name     string `xml:"name,attr"`
	Nick     string `xml:"nick"`
}

// ParseBookmarks decodes a XEP-0048 storage:bookmarks payload as
// returned by getUserBookmarks (§4.3).
func ParseBookmarks(storageXML string) ([]Bookmark, error) {
	if strings.TrimSpace(storageXML) == "" {
		return nil, nil
	}
	var storage bookmarkStorage
	if err := xml.Unmarshal([]byte(storageXML), &storage); err != nil {
		return nil, fmt.Errorf("remoteapi: parsing bookmark storage: %w", err)
	}
	out := make([]Bookmark, 0, len(storage.Conferences))
	for _, c := range storage.Conferences {
		autojoin, _ := strconv.ParseBool(c.Autojoin)
		out = append(out, Bookmark{JID: c.JID, Name: c.Name, Autojoin: autojoin, Nick: c.Nick})
	}
	return out, nil
}
