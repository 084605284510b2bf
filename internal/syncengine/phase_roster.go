package syncengine

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/remoteapi"
)

// syncRosters is phase 7: for every ordered pair of managed members
// (a, b) with a != b, write b's roster entry into a's roster only if
// it is missing, its group set differs, or its nick differs. a's
// current roster is fetched once per sync and reused for every b the
// cache key covers (§4.5, write-minimization is a hard requirement
// because the remote emits presence notifications on every write).
func (e *Engine) syncRosters(ctx context.Context, working document.Document, cache *lru.Cache[string, any], report *Report) {
	definedLabels := make(map[document.Key]string, len(working.Groups))
	for k, label := range working.Groups {
		definedLabels[k] = label
	}

	for _, a := range working.Members {
		roster := e.rosterFor(ctx, a.UserID, cache, report)
		byJID := make(map[string]remoteapi.RosterItem, len(roster))
		for _, it := range roster {
			byJID[it.JID] = it
		}

		for _, b := range working.Members {
			if a.UserID == b.UserID {
				continue
			}
			targetJID := jid(b.UserID, e.Config.XMPPDomain)
			targetGroups := groupLabels(b.Groups, definedLabels)

			current, exists := byJID[targetJID]
			if exists && sameRosterTarget(current, b.Name, targetGroups) {
				report.add("roster-unchanged", "%s -> %s", a.UserID, b.UserID)
				continue
			}

			if err := e.Client.AddRosterItem(ctx, a.UserID, e.Config.XMPPDomain, b.UserID, e.Config.XMPPDomain, b.Name, targetGroups, "both"); err != nil {
				report.add("api-error", "writing roster %s -> %s: %v", a.UserID, b.UserID, err)
				continue
			}
			report.add("roster-updated", "%s -> %s", a.UserID, b.UserID)
		}
	}
}

func (e *Engine) rosterFor(ctx context.Context, userID string, cache *lru.Cache[string, any], report *Report) []remoteapi.RosterItem {
	key := fmt.Sprintf("roster:%s", userID)
	if cached, ok := cache.Get(key); ok {
		return cached.([]remoteapi.RosterItem)
	}
	roster, err := e.Client.GetRoster(ctx, userID)
	if err != nil {
		report.add("api-error", "fetching %s's roster: %v", userID, err)
		roster = nil
	}
	cache.Add(key, roster)
	return roster
}

func groupLabels(groups document.KeySet, defined map[document.Key]string) []string {
	out := make([]string, 0, groups.Len())
	for _, k := range groups.Sorted() {
		if label, ok := defined[k]; ok {
			out = append(out, label)
		}
	}
	return out
}

func sameRosterTarget(current remoteapi.RosterItem, nick string, groups []string) bool {
	if current.Nick != nick {
		return false
	}
	return sameStringSet(current.Groups, groups)
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}
