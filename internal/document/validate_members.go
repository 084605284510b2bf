package document

import "fmt"

// validateMembers enforces: non-blank and unique name; user-id is a
// valid slug and unique across members; groups non-empty and every
// group identifier it names must be defined in Groups (§3).
func validateMembers(members []Member, defined KeySet, result *Result) {
	seenNames := make(map[string]int)
	seenUserIDs := make(map[string]int)

	for i, m := range members {
		field := fmt.Sprintf("members[%d]", i)

		if m.Name == "" {
			result.AddIssue("E300", "member name must not be blank", field+".name", "members", "")
		} else if prior, ok := seenNames[m.Name]; ok {
			result.AddIssue("E301",
				fmt.Sprintf("member name %q must be unique, also used at members[%d]", m.Name, prior),
				field+".name", "members", "")
		} else {
			seenNames[m.Name] = i
		}

		if !isValidSlug(m.UserID) {
			result.AddIssue("E302",
				fmt.Sprintf("user-id %q must be lowercase ascii letters, digits and hyphens with no leading or trailing hyphen", m.UserID),
				field+".user-id", "members", "")
		} else if prior, ok := seenUserIDs[m.UserID]; ok {
			result.AddIssue("E303",
				fmt.Sprintf("user-id %q must be unique, also used at members[%d]", m.UserID, prior),
				field+".user-id", "members", "")
		} else {
			seenUserIDs[m.UserID] = i
		}

		if m.Groups.Len() == 0 {
			result.AddIssue("E304", "groups must not be empty", field+".groups", "members", "")
		}

		validateGroupRefs(m.Groups, defined, field+".groups", "members", result)
	}
}
