package document

import "fmt"

// validateGroups enforces: labels unique and non-blank, and the two
// mandatory keys group/owner and group/bot are present (§3). Key
// uniqueness is structural (Groups is a Go map) and is not re-checked
// here.
func validateGroups(groups Groups, result *Result) {
	if _, ok := groups[GroupOwner]; !ok {
		result.AddIssue("E100", "Groups is missing the mandatory key group/owner",
			"groups", "groups", "add a group/owner entry, e.g. \"group/owner: Owner\"")
	}
	if _, ok := groups[GroupBot]; !ok {
		result.AddIssue("E101", "Groups is missing the mandatory key group/bot",
			"groups", "groups", "add a group/bot entry, e.g. \"group/bot: Bot\"")
	}

	seenLabels := make(map[string]Key)
	for _, k := range sortedGroupKeys(groups) {
		label := groups[k]
		field := fmt.Sprintf("groups[%s]", k.String())

		if label == "" {
			result.AddIssue("E102", fmt.Sprintf("group %s has a blank label", k.String()),
				field, "groups", "")
			continue
		}

		if prior, ok := seenLabels[label]; ok {
			result.AddIssue("E103",
				fmt.Sprintf("label %q must be unique, also used by %s", label, prior.String()),
				field, "groups", "")
		}
		seenLabels[label] = k
	}
}

func sortedGroupKeys(groups Groups) []Key {
	keys := make([]Key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	ks := KeySet(make(map[Key]struct{}, len(keys)))
	for _, k := range keys {
		ks.Add(k)
	}
	return ks.Sorted()
}
