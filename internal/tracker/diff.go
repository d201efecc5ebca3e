package tracker

import (
	"fmt"

	"clanwatch/internal/cocapi"
	"clanwatch/internal/storage"
)

type changeKind int

const (
	memberJoined changeKind = iota
	memberLeft
	memberRoleChanged
)

type rosterChange struct {
	kind    changeKind
	tag     string
	name    string
	role    string
	oldRole string
}

func (c rosterChange) String() string {
	switch c.kind {
	case memberJoined:
		return fmt.Sprintf("%s (%s) joined as %s", c.name, c.tag, c.role)
	case memberLeft:
		return fmt.Sprintf("%s (%s) left the clan", c.name, c.tag)
	default:
		return fmt.Sprintf("%s (%s) role changed: %s -> %s", c.name, c.tag, c.oldRole, c.role)
	}
}

// diffRoster compares the stored roster with the freshly fetched one.
// Changes come out in a stable order: leaves, joins, then role changes,
// each following the input ordering.
func diffRoster(prev []storage.MemberRecord, cur []cocapi.Member) []rosterChange {
	known := make(map[string]storage.MemberRecord, len(prev))
	for _, m := range prev {
		known[m.MemberTag] = m
	}
	present := make(map[string]bool, len(cur))
	for _, m := range cur {
		present[m.Tag] = true
	}

	var changes []rosterChange
	for _, m := range prev {
		if !present[m.MemberTag] {
			changes = append(changes, rosterChange{kind: memberLeft, tag: m.MemberTag, name: m.Name})
		}
	}
	for _, m := range cur {
		old, ok := known[m.Tag]
		if !ok {
			changes = append(changes, rosterChange{kind: memberJoined, tag: m.Tag, name: m.Name, role: m.Role})
			continue
		}
		if old.Role != m.Role {
			changes = append(changes, rosterChange{kind: memberRoleChanged, tag: m.Tag, name: m.Name, role: m.Role, oldRole: old.Role})
		}
	}
	return changes
}

// departedTags extracts the tags of members that left.
func departedTags(changes []rosterChange) []string {
	var out []string
	for _, c := range changes {
		if c.kind == memberLeft {
			out = append(out, c.tag)
		}
	}
	return out
}
