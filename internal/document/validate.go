package document

// Validate is the pure top-down schema validator (§4.1). If Groups
// fails, rooms and members are not validated and the groups issues are
// returned alone — a cheap short-circuit, since rooms and members are
// validated with the resolved group-key set as context and that
// context cannot be trusted once Groups itself is broken.
func Validate(d Document) *Result {
	result := NewResult()

	validateGroups(d.Groups, result)
	if !result.OK() {
		return result
	}

	defined := d.DefinedGroupKeys()
	validateRooms(d.Rooms, defined, result)
	validateMembers(d.Members, defined, result)

	return result
}
